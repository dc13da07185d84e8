package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"
)

// RuleManager gerencia a compilação e avaliação das regras CEL declaradas
// nos campos do catálogo. Programas compilados ficam em cache pela expressão.
type RuleManager struct {
	env      *cel.Env
	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewRuleManager inicializa o ambiente CEL com as variáveis disponíveis às regras.
func NewRuleManager() (*RuleManager, error) {
	env, err := cel.NewEnv(
		cel.StdLib(),
		cel.Declarations(
			decls.NewVar("value", decls.Dyn),  // Valor do campo validado
			decls.NewVar("record", decls.Dyn), // Payload completo da entidade
			decls.NewVar("entity", decls.Dyn), // Nome da entidade
		),
	)
	if err != nil {
		return nil, fmt.Errorf("erro fatal CEL init: %w", err)
	}

	return &RuleManager{env: env, programs: make(map[string]cel.Program)}, nil
}

// Check compila a expressão sem avaliá-la; usado ao validar o catálogo.
func (rm *RuleManager) Check(expression string) error {
	_, err := rm.program(expression)
	return err
}

// EvaluateBool processa regras de validação (deve retornar true/false).
func (rm *RuleManager) EvaluateBool(expression string, vars map[string]interface{}) (bool, error) {
	if expression == "" {
		return true, nil // Expressão vazia = aprova
	}

	prg, err := rm.program(expression)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("erro execução CEL: %w", err)
	}

	if val, ok := out.Value().(bool); ok {
		return val, nil
	}
	return false, fmt.Errorf("resultado não é booleano")
}

func (rm *RuleManager) program(expr string) (cel.Program, error) {
	rm.mu.RLock()
	prg, ok := rm.programs[expr]
	rm.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := rm.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("erro compilação CEL '%s': %w", expr, issues.Err())
	}
	prg, err := rm.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("erro ao gerar programa CEL: %w", err)
	}

	rm.mu.Lock()
	rm.programs[expr] = prg
	rm.mu.Unlock()
	return prg, nil
}
