package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	coreconfig "github.com/m3rciful/heatbot/core/config"
)

func TestDSNForms(t *testing.T) {
	cfg := coreconfig.DatabaseConfig{
		Host: "db", Port: "5432", User: "bot", Password: "p@ss", Name: "heatbot", SSLMode: "disable",
	}
	assert.Equal(t, "user=bot password=p@ss host=db port=5432 dbname=heatbot sslmode=disable", KeywordDSN(cfg))
	assert.Equal(t, "postgres://bot:p%40ss@db:5432/heatbot?sslmode=disable", URLDSN(cfg))
}
