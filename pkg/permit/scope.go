package permit

import (
	"fmt"
	"strings"
)

// Scopes is the bitmask of operations a delegated key is allowed to
// authorize on behalf of an account owner.
type Scopes uint32

const (
	ScopePlace Scopes = 1 << iota
	ScopeCancel
	ScopeWithdraw
	ScopeSetLeverage
	ScopeFaucet
)

var scopeNames = []struct {
	bit  Scopes
	name string
}{
	{ScopePlace, "place"},
	{ScopeCancel, "cancel"},
	{ScopeWithdraw, "withdraw"},
	{ScopeSetLeverage, "set_leverage"},
	{ScopeFaucet, "faucet"},
}

func (s Scopes) String() string {
	var names []string
	for _, sn := range scopeNames {
		if s&sn.bit != 0 {
			names = append(names, sn.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseScope maps a configuration name to its scope bit
func ParseScope(name string) (Scopes, error) {
	for _, sn := range scopeNames {
		if sn.name == name {
			return sn.bit, nil
		}
	}
	return 0, fmt.Errorf("permit: unknown scope: %s", name)
}

// Allows reports whether the scope set covers the action. Modify needs
// both place and cancel; noop is always allowed.
func (s Scopes) Allows(action Action) bool {
	switch action.(type) {
	case Place:
		return s&ScopePlace != 0
	case CancelByID, CancelByClientID, CancelAll:
		return s&ScopeCancel != 0
	case Modify:
		return s&ScopePlace != 0 && s&ScopeCancel != 0
	case Withdraw:
		return s&ScopeWithdraw != 0
	case SetLeverage:
		return s&ScopeSetLeverage != 0
	case Faucet:
		return s&ScopeFaucet != 0
	case Noop:
		return true
	default:
		return false
	}
}
