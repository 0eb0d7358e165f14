package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/cel-go/cel"
)

// DefaultVerdict considera a imagem um acerto quando o rótulo procurado
// aparece entre os rótulos detectados.
const DefaultVerdict = "pattern in labels"

// RuleManager gerencia a compilação de expressões CEL sobre os rótulos
// retornados pela classificação.
//
// Variáveis disponíveis:
//   - labels: list(string) com os nomes em minúsculas
//   - confidence: map(string, double) nome -> confiança (0-100)
//   - pattern: string com o rótulo procurado, em minúsculas
type RuleManager struct {
	env *cel.Env
}

// NewRuleManager inicializa o ambiente CEL.
func NewRuleManager() (*RuleManager, error) {
	env, err := cel.NewEnv(
		cel.Variable("labels", cel.ListType(cel.StringType)),
		cel.Variable("confidence", cel.MapType(cel.StringType, cel.DoubleType)),
		cel.Variable("pattern", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("erro fatal CEL init: %w", err)
	}
	return &RuleManager{env: env}, nil
}

// Verdict é uma expressão booleana compilada, pronta para avaliação.
type Verdict struct {
	prg     cel.Program
	expr    string
	pattern string
}

// Compile compila a expressão. Expressão vazia usa DefaultVerdict.
// Expressões que não retornam bool são rejeitadas aqui, na inicialização.
func (rm *RuleManager) Compile(expr, pattern string) (*Verdict, error) {
	if strings.TrimSpace(expr) == "" {
		expr = DefaultVerdict
	}

	ast, issues := rm.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("erro compilação CEL '%s': %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expressão CEL '%s' deve retornar bool, retorna %s", expr, ast.OutputType())
	}

	prg, err := rm.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("erro programa CEL: %w", err)
	}
	return &Verdict{prg: prg, expr: expr, pattern: strings.ToLower(pattern)}, nil
}

// Expression retorna a expressão compilada.
func (v *Verdict) Expression() string {
	return v.expr
}

// Evaluate avalia a expressão para os rótulos (nome -> confiança).
func (v *Verdict) Evaluate(labels map[string]float64) (bool, error) {
	names := make([]string, 0, len(labels))
	confidence := make(map[string]float64, len(labels))
	for name, c := range labels {
		l := strings.ToLower(name)
		names = append(names, l)
		confidence[l] = c
	}
	sort.Strings(names)

	out, _, err := v.prg.Eval(map[string]any{
		"labels":     names,
		"confidence": confidence,
		"pattern":    v.pattern,
	})
	if err != nil {
		return false, fmt.Errorf("erro execução CEL: %w", err)
	}

	val, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("resultado não é booleano")
	}
	return val, nil
}
