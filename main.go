package main

import "github.com/example/retype/internal/cli"

func main() {
	cli.Execute()
}
