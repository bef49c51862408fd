package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochronus/gotelegraph/internal/config"
	"github.com/ochronus/gotelegraph/pkg/telegraph"
	"github.com/ochronus/gotelegraph/pkg/telegraph/content"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by WriteResult.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// WriteResult writes v to w as indented JSON or as YAML. YAML output uses the
// JSON field names.
func WriteResult(w io.Writer, format string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	switch strings.ToLower(format) {
	case FormatJSON, "":
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case FormatYAML, "yml":
		var generic interface{}
		if err := json.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q, use json or yaml", format)
	}
}

// LoadContent reads page content from path: a JSON array of nodes when the
// file ends in .json, HTML otherwise. A path of "-" reads HTML from stdin.
func LoadContent(path string, stdin io.Reader) ([]telegraph.Node, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var nodes []telegraph.Node
		if err := json.Unmarshal(data, &nodes); err != nil {
			return nil, fmt.Errorf("failed to parse content %s: %w", path, err)
		}
		return nodes, nil
	}

	return content.FromHTML(bytes.NewReader(data))
}

// GenerateConfig creates a Telegraph account and stores its access token, with
// the account's names, in the configuration file at configPath.
func GenerateConfig(ctx context.Context, client telegraph.ClientAPI, cfg *config.Config, configPath string, req telegraph.CreateAccountRequest) (*telegraph.Account, error) {
	fmt.Fprintf(os.Stderr, "Generating config %s\n", configPath)

	account, err := client.CreateAccount(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, SaveAccount(cfg, configPath, account)
}

// SaveAccount copies the account's token and names into cfg and writes it.
// Empty values in account leave cfg unchanged, since revokeAccessToken
// answers with the token and auth URL only.
func SaveAccount(cfg *config.Config, configPath string, account *telegraph.Account) error {
	if account.AccessToken != "" {
		cfg.AccessToken = account.AccessToken
	}
	if account.ShortName != "" {
		cfg.ShortName = account.ShortName
	}
	if account.AuthorName != "" {
		cfg.AuthorName = account.AuthorName
	}
	if account.AuthorURL != "" {
		cfg.AuthorURL = account.AuthorURL
	}

	fmt.Fprintf(os.Stderr, "Writing %s\n", configPath)
	return cfg.Save(configPath)
}
