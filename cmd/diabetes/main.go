// Command diabetes は血糖値・体重・食事などの記録を管理するWebサービスを起動する。
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hitoshi/diabetes/internal/app"
)

func main() {
	if err := app.Run(context.Background(), os.Stdout, os.Args[1:]); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
