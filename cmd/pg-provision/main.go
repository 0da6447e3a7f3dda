package main

import "github.com/darianmiller/install-postgres-on-windows/cmd/pg-provision/cmd"

func main() {
	cmd.Execute()
}
