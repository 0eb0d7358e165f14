package dyndb

import "fmt"

// AttrKind é o tipo de atributo DynamoDB associado a um campo.
type AttrKind int

const (
	// KindString grava o valor como S.
	KindString AttrKind = iota + 1
	// KindNumber grava o valor como N (apenas inteiros).
	KindNumber
	// KindBoolString grava "true"/"false" como S, preservando o literal original.
	KindBoolString
	// KindMap grava o valor como M.
	KindMap
	// KindNull grava sempre NULL.
	KindNull
)

func (k AttrKind) String() string {
	switch k {
	case KindString:
		return "S"
	case KindNumber:
		return "N"
	case KindBoolString:
		return "BOOL"
	case KindMap:
		return "M"
	case KindNull:
		return "NULL"
	default:
		return fmt.Sprintf("AttrKind(%d)", int(k))
	}
}

func (k AttrKind) valid() bool {
	return k >= KindString && k <= KindNull
}

// Schema associa cada nome de campo ao seu tipo de atributo.
// É estático: definido uma vez e validado na inicialização.
type Schema map[string]AttrKind

// Validate garante que o schema não está vazio e que todos os tipos são conhecidos.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return &ConfigurationError{Reason: "schema has no fields"}
	}
	for name, kind := range s {
		if name == "" {
			return &ConfigurationError{Reason: "empty field name"}
		}
		if !kind.valid() {
			return &ConfigurationError{Field: name, Reason: fmt.Sprintf("unknown attribute kind %s", kind)}
		}
	}
	return nil
}

// Kind retorna o tipo do campo e se ele existe no schema.
func (s Schema) Kind(field string) (AttrKind, bool) {
	k, ok := s[field]
	return k, ok
}
