package main

import (
	"os"
)

// @title CesiZen API
// @version 1.0.0
// @description Mental health platform API: accounts, roles, relaxation activities and information pages.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
