package main

import "github.com/cyber-run/floro/cmd/floro/cmd"

func main() {
	cmd.Execute()
}
