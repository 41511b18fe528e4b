package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/VivaainNg/finance-tracker/internal/category"
)

var errSeedDryRun = errors.New("dry run, rolling back")

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the canonical categories",
	Long: `Insert the canonical category list inside one transaction.
Without --commit the transaction is rolled back so the run only verifies
that seeding would succeed.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gormDB, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		err = gormDB.Transaction(func(tx *gorm.DB) error {
			for _, name := range category.DefaultCategories {
				var count int64
				if err := tx.Table("categories").Where("name = ?", name).Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					fmt.Println("category already exists:", name)
					continue
				}
				if err := tx.Exec("INSERT INTO categories (name) VALUES (?)", name).Error; err != nil {
					return fmt.Errorf("failed to insert category %s: %w", name, err)
				}
				fmt.Println("Seeded category:", name)
			}

			if !seedCommit {
				return errSeedDryRun
			}
			return nil
		})

		if errors.Is(err, errSeedDryRun) {
			fmt.Println("Dry run complete; pass --commit to persist")
			return
		}
		if err != nil {
			log.Fatalf("seeding failed: %v", err)
		}
		fmt.Println("Seeding committed")
	},
}
