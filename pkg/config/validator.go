package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/raywall/cat-wrangler/envloader"
)

type ConfigValidator struct {
	validate *validator.Validate
}

// NewValidator cria uma nova instância do validador
func NewValidator() *ConfigValidator {
	return &ConfigValidator{
		validate: validator.New(),
	}
}

// Validate realiza as validações estruturais (tags) de qualquer struct de configuração
func (cv *ConfigValidator) Validate(cfg any) error {
	if err := cv.validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			var errMsgs []string
			for _, e := range validationErrors {
				errMsgs = append(errMsgs, fmt.Sprintf("Campo '%s' falhou na regra '%s'", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("erros de validação estrutural:\n- %s", strings.Join(errMsgs, "\n- "))
		}
		return fmt.Errorf("erro de validação estrutural: %w", err)
	}
	return nil
}

// LoadFunction lê a configuração da função do ambiente e a valida.
func LoadFunction() (*FunctionConfig, error) {
	return loadFunctionFrom(envloader.Load)
}

// LoadFunctionFrom é como LoadFunction, lendo de uma LookupFunc.
func LoadFunctionFrom(lookup envloader.LookupFunc) (*FunctionConfig, error) {
	return loadFunctionFrom(func(cfg interface{}) error { return envloader.LoadFrom(cfg, lookup) })
}

func loadFunctionFrom(load func(interface{}) error) (*FunctionConfig, error) {
	var cfg FunctionConfig
	if err := load(&cfg); err != nil {
		return nil, err
	}
	if err := NewValidator().Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadClient lê a configuração do cliente de uma LookupFunc e a valida.
func LoadClient(lookup envloader.LookupFunc) (*ClientConfig, error) {
	var cfg ClientConfig
	if err := envloader.LoadFrom(&cfg, lookup); err != nil {
		return nil, err
	}
	if err := NewValidator().Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
