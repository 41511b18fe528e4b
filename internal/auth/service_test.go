package auth

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	userDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/user"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

type mockUserRepository struct {
	byUsername map[string]*userDatamodel.User
	byID       map[int64]*userDatamodel.User
	nextID     int64

	returnError   bool
	errorToReturn error
}

func newMockUserRepository() *mockUserRepository {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)

	repo := &mockUserRepository{
		byUsername: make(map[string]*userDatamodel.User),
		byID:       make(map[int64]*userDatamodel.User),
		nextID:     1,
	}
	for _, u := range []*userDatamodel.User{
		{Username: "alice", PasswordHash: string(hashed), IsActive: true},
		{Username: "bob", PasswordHash: string(hashed), IsActive: true},
		{Username: "inactive", PasswordHash: string(hashed), IsActive: false},
	} {
		_ = repo.Create(u)
	}
	return repo
}

func (m *mockUserRepository) GetByUsername(username string) (*userDatamodel.User, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}
	return m.byUsername[username], nil
}

func (m *mockUserRepository) GetByID(id int64) (*userDatamodel.User, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}
	return m.byID[id], nil
}

func (m *mockUserRepository) Create(user *userDatamodel.User) error {
	if m.returnError {
		return m.errorToReturn
	}
	user.ID = m.nextID
	m.nextID++
	m.byUsername[user.Username] = user
	m.byID[user.ID] = user
	return nil
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service  *Service
		mockRepo *mockUserRepository
		tokenGen *JWTTokenGenerator
	)

	ginkgo.BeforeEach(func() {
		mockRepo = newMockUserRepository()
		tokenGen = NewJWTTokenGenerator("test-access-secret", "test-refresh-secret", 15*time.Minute, 24*time.Hour)
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = NewService(mockRepo, tokenGen, bcrypt.MinCost, slogger)
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.Context("when credentials are valid", func() {
			ginkgo.It("should return access and refresh tokens", func() {
				tokens, err := service.Authenticate(LoginDTO{Username: "alice", Password: "correct_password"})

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(tokens.AccessToken).ToNot(gomega.BeEmpty())
				gomega.Expect(tokens.RefreshToken).ToNot(gomega.BeEmpty())
				gomega.Expect(tokens.AccessToken).ToNot(gomega.Equal(tokens.RefreshToken))
			})

			ginkgo.It("should generate a valid access token", func() {
				tokens, err := service.Authenticate(LoginDTO{Username: "bob", Password: "correct_password"})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				claims, err := service.ValidateAccessToken(tokens.AccessToken)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(claims.Username).To(gomega.Equal("bob"))
			})
		})

		ginkgo.Context("when credentials are invalid", func() {
			ginkgo.It("should reject an unknown username", func() {
				_, err := service.Authenticate(LoginDTO{Username: "nobody", Password: "whatever"})
				gomega.Expect(err).To(gomega.Equal(ErrInvalidCredentials))
			})

			ginkgo.It("should reject a wrong password", func() {
				_, err := service.Authenticate(LoginDTO{Username: "alice", Password: "wrong_password"})
				gomega.Expect(err).To(gomega.Equal(ErrInvalidCredentials))
			})

			ginkgo.It("should reject an inactive account", func() {
				_, err := service.Authenticate(LoginDTO{Username: "inactive", Password: "correct_password"})
				gomega.Expect(err).To(gomega.Equal(ErrUserInactive))
			})
		})
	})

	ginkgo.Describe("Register", func() {
		ginkgo.It("should create an account with a bcrypt hash", func() {
			user, err := service.Register(RegisterDTO{Username: "carol", Password: "new_password"})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(user.ID).To(gomega.BeNumerically(">", 0))

			stored := mockRepo.byUsername["carol"]
			gomega.Expect(stored).ToNot(gomega.BeNil())
			gomega.Expect(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("new_password"))).To(gomega.Succeed())
		})

		ginkgo.It("should reject a taken username", func() {
			_, err := service.Register(RegisterDTO{Username: "alice", Password: "whatever"})
			gomega.Expect(err).To(gomega.Equal(ErrUsernameTaken))
		})
	})

	ginkgo.Describe("RefreshTokens", func() {
		ginkgo.It("should exchange a refresh token for a new pair", func() {
			tokens, err := service.Authenticate(LoginDTO{Username: "alice", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			fresh, err := service.RefreshTokens(tokens.RefreshToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(fresh.AccessToken).ToNot(gomega.BeEmpty())
		})

		ginkgo.It("should reject garbage", func() {
			_, err := service.RefreshTokens("not-a-token")
			gomega.Expect(err).To(gomega.HaveOccurred())
		})

		ginkgo.It("should reject an access token used as refresh token", func() {
			tokens, err := service.Authenticate(LoginDTO{Username: "alice", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.RefreshTokens(tokens.AccessToken)
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("GetUserByID", func() {
		ginkgo.It("should surface the stored user", func() {
			user, err := service.GetUserByID(1)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(user.Username).To(gomega.Equal("alice"))
		})

		ginkgo.It("should error for a missing id", func() {
			_, err := service.GetUserByID(999)
			gomega.Expect(errors.Is(err, ErrInvalidToken)).To(gomega.BeTrue())
		})
	})
})
