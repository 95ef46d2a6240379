package backend

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/tools/go/packages"
)

// Check type-checks the Go package in dir, which must belong to a module.
// Every type error is reported, not just the first.
func Check(dir string) error {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
			packages.NeedTypes | packages.NeedTypesInfo,
		Dir: dir,
	}
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return fmt.Errorf("load %s: %w", dir, err)
	}
	var errs []error
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			errs = append(errs, e)
		}
	})
	if len(errs) > 0 {
		return fmt.Errorf("check %s: %w", dir, errors.Join(errs...))
	}
	slog.Debug("generated package type-checks", "dir", dir, "packages", len(pkgs))
	return nil
}
