// Package config loads typed configuration from the environment.
//
// It wraps github.com/caarlos0/env/v11 for struct parsing and
// github.com/joho/godotenv for .env files. Each struct type is parsed once
// and cached for the lifetime of the process:
//
//	var app config.App
//	if err := config.Load(&app); err != nil {
//		log.Fatal(err)
//	}
//	if err := app.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// Driver packages declare their own Config structs which are loaded the
// same way. Use ResetCache or ForceReloadConfig in tests after changing the
// environment.
package config
