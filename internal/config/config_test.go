package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestTimeout(t *testing.T) {
	viper.Set("REQ_TIMEOUT", "")
	timeout := GetRequestTimeout()
	assert.Equal(t, timeout, defaultRequestTimeout)

	viper.Set("REQ_TIMEOUT", "14s")
	timeout = GetRequestTimeout()
	assert.Equal(t, timeout, 14*time.Second)

	viper.Set("REQ_TIMEOUT", "nonsense")
	timeout = GetRequestTimeout()
	assert.Equal(t, timeout, defaultRequestTimeout)
	viper.Set("REQ_TIMEOUT", "")
}

func TestPort(t *testing.T) {
	viper.Set("PORT", "")
	assert.Equal(t, defaultLocalPort, GetPort())

	viper.Set("PORT", "9000")
	assert.Equal(t, ":9000", GetPort())

	viper.Set("PORT", ":9001")
	assert.Equal(t, ":9001", GetPort())
	viper.Set("PORT", "")
}

func TestContract(t *testing.T) {
	viper.Set("PACKAGE_ID", "0xpackage")
	viper.Set("DOCUMENT_STORE_ID", "0xstore")
	viper.Set("EMPLOYEE_REGISTRY_ID", "0xregistry")
	viper.Set("BLOB_STORE_ENDPOINT", "https://blobs.example.com/")

	contract := GetContract()
	assert.Equal(t, "0xpackage", contract.PackageID)
	assert.Equal(t, "0xstore", contract.DocumentStoreID)
	assert.Equal(t, "0xregistry", contract.EmployeeRegistryID)
	assert.Equal(t, "https://blobs.example.com", contract.BlobStoreEndpoint)
	assert.Equal(t, defaultLedgerEndpoint, contract.LedgerEndpoint)
}

func TestAllowedOrigins(t *testing.T) {
	viper.Set("CORS_ALLOWED_ORIGINS", "")
	assert.Empty(t, GetAllowedOrigins())

	viper.Set("CORS_ALLOWED_ORIGINS", "https://a.example.com/, ,http://localhost:3000")
	assert.Equal(t, []string{"https://a.example.com", "http://localhost:3000"}, GetAllowedOrigins())
	viper.Set("CORS_ALLOWED_ORIGINS", "")
}
