package main

import "github.com/breezemail/breeze/internal/cli"

func main() {
	cli.Execute()
}
