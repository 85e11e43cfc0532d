package permissions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Permission is a capability code in "<app>.<action>_<model>" form, e.g. "shop.add_product".
// DependsOn lists codes a holder must also have for the permission to be effective;
// Implies lists codes granted automatically alongside it.
type Permission struct {
	ID          string
	Module      string
	DependsOn   []string
	Implies     []string
	Description string
}

var (
	ErrUnknownPermission  = errors.New("permission: unknown permission")
	ErrCircularDependency = errors.New("permission: circular dependency detected")

	errNilPermission = errors.New("permission: nil definition")
	errInvalidID     = errors.New("permission: id must look like <app>.<codename>")
	errDuplicateID   = errors.New("permission: already registered")
	errSelfReference = errors.New("permission: cannot reference itself")
)

var registry = struct {
	sync.RWMutex
	perms map[string]*Permission
}{perms: make(map[string]*Permission)}

// Register adds a permission definition. The module defaults to the code's app label.
func Register(perm *Permission) error {
	if perm == nil {
		return errNilPermission
	}

	id := strings.TrimSpace(perm.ID)
	app, codename, ok := strings.Cut(id, ".")
	if !ok || app == "" || codename == "" {
		return fmt.Errorf("%w: %q", errInvalidID, perm.ID)
	}

	def := clonePermission(perm)
	def.ID = id
	def.Module = strings.TrimSpace(def.Module)
	if def.Module == "" {
		def.Module = app
	}

	var err error
	if def.DependsOn, err = normaliseIDs(def.DependsOn, id); err != nil {
		return err
	}
	if def.Implies, err = normaliseIDs(def.Implies, id); err != nil {
		return err
	}

	registry.Lock()
	defer registry.Unlock()

	if _, exists := registry.perms[id]; exists {
		return fmt.Errorf("%w: %s", errDuplicateID, id)
	}
	registry.perms[id] = def
	return nil
}

// Get returns a copy of the permission definition when registered.
func Get(id string) (*Permission, bool) {
	registry.RLock()
	defer registry.RUnlock()

	perm, ok := registry.perms[id]
	if !ok {
		return nil, false
	}
	return clonePermission(perm), true
}

// GetAll returns a copy of all registered permissions keyed by ID.
func GetAll() map[string]*Permission {
	registry.RLock()
	defer registry.RUnlock()

	out := make(map[string]*Permission, len(registry.perms))
	for id, perm := range registry.perms {
		out[id] = clonePermission(perm)
	}
	return out
}

// IDs returns every registered code in sorted order.
func IDs() []string {
	registry.RLock()
	defer registry.RUnlock()

	ids := make([]string, 0, len(registry.perms))
	for id := range registry.perms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetByModule gathers permissions registered under module, sorted by ID.
func GetByModule(module string) []*Permission {
	registry.RLock()
	defer registry.RUnlock()

	module = strings.TrimSpace(module)
	var perms []*Permission
	for _, perm := range registry.perms {
		if perm.Module == module {
			perms = append(perms, clonePermission(perm))
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].ID < perms[j].ID })
	return perms
}

// ValidateDependencies ensures that all references point at registered permissions.
func ValidateDependencies() error {
	registry.RLock()
	defer registry.RUnlock()

	for _, perm := range registry.perms {
		for _, ref := range append(append([]string{}, perm.DependsOn...), perm.Implies...) {
			if _, ok := registry.perms[ref]; !ok {
				return fmt.Errorf("%w: %s references %s", ErrUnknownPermission, perm.ID, ref)
			}
		}
	}
	return nil
}

// ResolveDependencies returns the transitive DependsOn closure of permissionID, excluding itself.
func ResolveDependencies(permissionID string) ([]string, error) {
	perms := GetAll()
	root, ok := perms[permissionID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownPermission, permissionID)
	}

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(perms))
	var resolved []string

	var walk func(id string) error
	walk = func(id string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("%w at %s", ErrCircularDependency, id)
		case done:
			return nil
		}
		perm, ok := perms[id]
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownPermission, id)
		}

		state[id] = visiting
		for _, dep := range perm.DependsOn {
			if err := walk(dep); err != nil {
				return err
			}
		}
		state[id] = done
		if id != permissionID {
			resolved = append(resolved, id)
		}
		return nil
	}

	state[permissionID] = visiting
	for _, dep := range root.DependsOn {
		if err := walk(dep); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func clonePermission(perm *Permission) *Permission {
	cp := *perm
	cp.DependsOn = append([]string(nil), perm.DependsOn...)
	cp.Implies = append([]string(nil), perm.Implies...)
	return &cp
}

func normaliseIDs(values []string, self string) ([]string, error) {
	seen := make(map[string]struct{}, len(values))
	var result []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if value == self {
			return nil, fmt.Errorf("%w: %s", errSelfReference, self)
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result, nil
}

func unregister(id string) {
	registry.Lock()
	defer registry.Unlock()
	delete(registry.perms, id)
}
