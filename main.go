package main

import "github.com/VivaainNg/finance-tracker/cmd"

func main() {
	cmd.Execute()
}
