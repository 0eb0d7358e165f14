package client

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
)

// ClientIDFile é o nome do arquivo com o client id, dentro do diretório de config.
const ClientIDFile = "client_id"

const clientIDPrefix = "catwrangler"

// LoadClientID lê o client id de <configDir>/client_id. Se o arquivo não
// existir, gera um id "catwrangler<100-999>" e o grava.
func LoadClientID(configDir string) (string, error) {
	path := filepath.Join(configDir, ClientIDFile)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		id := strings.TrimSpace(string(data))
		if id == "" {
			return "", fmt.Errorf("client: %s is empty", path)
		}
		return id, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("client: read %s: %w", path, err)
	}

	id := fmt.Sprintf("%s%d", clientIDPrefix, 100+rand.IntN(900))
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("client: create %s: %w", configDir, err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("client: write %s: %w", path, err)
	}
	return id, nil
}
