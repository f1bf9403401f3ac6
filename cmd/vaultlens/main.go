package main

import (
	"github.com/vaultlens/vaultlens/cmd/vaultlens/cmd"
)

func main() {
	cmd.Execute()
}
