package operation

import "fmt"

// Validate checks the field constraints of a single declaration.
func Validate(op Operation) error {
	base := op.Base()
	if base.Key != "" && base.KeyGenerator != "" {
		return fmt.Errorf("%w (%s)", ErrKeyConflict, op)
	}
	if base.CacheManager != "" && base.CacheResolver != "" {
		return fmt.Errorf("%w (%s)", ErrResolverConflict, op)
	}
	return nil
}

// ValidateSet checks a call site's full declaration list, including the
// constraints a sync read imposes on the whole set. It is run when the
// operation set for a call is first assembled.
func ValidateSet(ops []Operation) error {
	for _, op := range ops {
		if err := Validate(op); err != nil {
			return err
		}
	}

	for _, op := range ops {
		read, ok := op.(*Read)
		if !ok || !read.Sync {
			continue
		}
		if len(ops) > 1 {
			return fmt.Errorf("%w (%s)", ErrSyncNotAlone, op)
		}
		if len(read.CacheNames) > 1 {
			return fmt.Errorf("%w (%s)", ErrSyncMultipleCaches, op)
		}
		if read.Unless != "" {
			return fmt.Errorf("%w (%s)", ErrSyncWithUnless, op)
		}
	}
	return nil
}
