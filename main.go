package main

import (
	cmd "github.com/cozy-creator/cropguard/cmd/cropguard"
)

func main() {
	cmd.Execute()
}
