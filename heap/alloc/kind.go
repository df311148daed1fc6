package alloc

import (
	"fmt"
	"strings"
)

// Kind selects one of the fixed set of strategies.
type Kind uint8

const (
	KindBump Kind = iota
	KindLinkedList
	KindFixedSize
)

// Kinds lists every strategy in declaration order.
var Kinds = []Kind{KindBump, KindLinkedList, KindFixedSize}

func (k Kind) String() string {
	switch k {
	case KindBump:
		return "bump"
	case KindLinkedList:
		return "linked-list"
	case KindFixedSize:
		return "fixed-size"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind accepts the names printed by String plus a few aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bump":
		return KindBump, nil
	case "linked-list", "linkedlist", "linked_list", "free-list", "freelist":
		return KindLinkedList, nil
	case "fixed-size", "fixedsize", "fixed_size", "size-class", "sizeclass":
		return KindFixedSize, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Set implements pflag.Value so a Kind can be bound to a flag directly.
func (k *Kind) Set(s string) error {
	v, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Type implements pflag.Value.
func (k *Kind) Type() string { return "strategy" }

// New builds an uninitialized strategy of kind over mem. config is only
// used by KindFixedSize.
func New(kind Kind, mem Memory, config SizeClassConfig) (Strategy, error) {
	switch kind {
	case KindBump:
		return NewBump(), nil
	case KindLinkedList:
		return NewLinkedList(mem), nil
	case KindFixedSize:
		return NewFixedSize(mem, config)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}
