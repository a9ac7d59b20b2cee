// Command declarative maps users onto a table, commits two of them in one
// transaction and lists them.
package main

import (
	"context"

	"github.com/hitec-hamburg/entitymap/bootstrap"
	"github.com/hitec-hamburg/entitymap/demo"
)

func main() {
	bootstrap.Main("declarative", func(ctx context.Context, env *bootstrap.Env) error {
		_, err := demo.Declarative(ctx, env.DB, env.Logger)
		return err
	})
}
