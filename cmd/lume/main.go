package main

import (
	"github.com/lumechain/go-lume/cmd/lume/app"
)

func main() {
	app.Execute()
}
