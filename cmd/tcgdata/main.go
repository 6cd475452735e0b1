package main

import "github.com/phelbig/tcgdata/internal/cli"

func main() {
	cli.Execute()
}
