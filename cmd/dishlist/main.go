// Command dishlist は料理リストのAPIサーバー、ワーカー、マイグレーションを起動する。
//
//	dishlist [serve|worker|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/dishlist/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "dishlist: %v\n", err)
		os.Exit(1)
	}
}
