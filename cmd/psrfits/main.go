package main

import (
	"github.com/tacogips/psrfits/internal/cli"
)

func main() {
	cli.Execute()
}
