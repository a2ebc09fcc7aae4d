package main

import (
	"os"

	"github.com/fjod/go_shop/internal/cli"
	"github.com/shopspring/decimal"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
