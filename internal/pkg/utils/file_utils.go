package utils

import (
	"os"

	jsoniter "github.com/json-iterator/go"

	"portfolio_tracker/internal/domain/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LoadTokensFromJSON reads a JSON token list file.
func LoadTokensFromJSON(filePath string) ([]entity.TokenInfo, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var tokens []entity.TokenInfo
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}
