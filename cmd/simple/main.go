// Command simple creates a single table, inserts one user and selects it
// back by username.
package main

import (
	"context"

	"github.com/hitec-hamburg/entitymap/bootstrap"
	"github.com/hitec-hamburg/entitymap/demo"
)

func main() {
	bootstrap.Main("simple", func(ctx context.Context, env *bootstrap.Env) error {
		_, err := demo.Simple(ctx, env.DB, env.Logger)
		return err
	})
}
