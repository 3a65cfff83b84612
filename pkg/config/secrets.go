package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// discoverSecretsFile finds the optional secrets file:
//  1. <ENV_PREFIX>_SECRETS_FILE, which must name a readable file when set
//  2. secrets.<ext> next to the config file, using the config file's extension
func (l *ViperLoader) discoverSecretsFile() (string, error) {
	secretsEnv := l.prefixedEnv("SECRETS_FILE")
	if raw, ok := l.lookupEnv(secretsEnv); ok {
		secretsFile := strings.TrimSpace(raw)
		if secretsFile == "" {
			return "", fmt.Errorf("%s is set but empty", secretsEnv)
		}
		info, err := os.Stat(secretsFile)
		if err != nil {
			return "", fmt.Errorf("%s points to an inaccessible file %s: %w", secretsEnv, secretsFile, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s must point to a file, got directory %s", secretsEnv, secretsFile)
		}
		return secretsFile, nil
	}

	if l.configFile != "" {
		secretsFile := filepath.Join(filepath.Dir(l.configFile), "secrets"+filepath.Ext(l.configFile))
		if info, err := os.Stat(secretsFile); err == nil && !info.IsDir() {
			return secretsFile, nil
		}
	}
	return "", nil
}

func mergeSecrets(v *viper.Viper, secretsFile string) error {
	sv := viper.New()
	sv.SetConfigFile(secretsFile)
	if err := sv.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read secrets file %s: %w", secretsFile, err)
	}
	if err := v.MergeConfigMap(sv.AllSettings()); err != nil {
		return fmt.Errorf("failed to merge secrets: %w", err)
	}
	return nil
}
