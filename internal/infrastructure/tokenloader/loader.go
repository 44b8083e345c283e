package tokenloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/utils"
)

// TokenFileLoader implements the port.TokenProvider interface. Token lists
// live in <dir>/<network identifier>.json.
type TokenFileLoader struct {
	tokenDirPath string
	logger       port.Logger
}

// NewTokenLoader creates a new TokenFileLoader.
func NewTokenLoader(dir string, l port.Logger) port.TokenProvider {
	if !dirExists(dir) {
		l.Warn("Token directory not found, only native balances will be tracked", "path", dir)
	}
	return &TokenFileLoader{tokenDirPath: dir, logger: l}
}

// GetTokensByNetwork reads the token file of every EVM network and keeps the
// tokens whose chain id matches the network. A missing directory or file
// means no tokens; an unreadable or invalid file is an error.
func (l *TokenFileLoader) GetTokensByNetwork(activeNetworkDefs []entity.NetworkDefinition) (map[string][]entity.TokenInfo, error) {
	tokensByNetwork := make(map[string][]entity.TokenInfo)

	for _, networkDef := range activeNetworkDefs {
		if networkDef.Kind != entity.NetworkKindEVM && networkDef.Kind != "" {
			continue
		}

		filePath := filepath.Join(l.tokenDirPath, networkDef.Identifier+".json")
		tokensInFile, err := utils.LoadTokensFromJSON(filePath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				l.logger.Debug("No token file for network", "network", networkDef.Identifier, "path", filePath)
				continue
			}
			return nil, fmt.Errorf("failed to load tokens from %s: %w", filePath, err)
		}

		validTokensForNetwork := make([]entity.TokenInfo, 0, len(tokensInFile))
		for _, token := range tokensInFile {
			if token.ChainID != networkDef.ChainID {
				l.logger.Warn("Token has mismatched ChainID in file, skipping token.",
					"file", filePath, "token_symbol", token.Symbol, "token_address", token.Address,
					"token_chain_id", token.ChainID, "expected_chain_id", networkDef.ChainID)
				continue
			}
			validTokensForNetwork = append(validTokensForNetwork, token)
		}

		if len(validTokensForNetwork) > 0 {
			tokensByNetwork[networkDef.Identifier] = validTokensForNetwork
			l.logger.Info("Loaded tokens for network", "network", networkDef.Identifier, "count", len(validTokensForNetwork))
		}
	}

	return tokensByNetwork, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
