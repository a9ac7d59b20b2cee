// Command relations stores a user together with its auth record and a post,
// then reads all three back through their relations.
package main

import (
	"context"

	"github.com/hitec-hamburg/entitymap/bootstrap"
	"github.com/hitec-hamburg/entitymap/demo"
)

func main() {
	bootstrap.Main("relations", func(ctx context.Context, env *bootstrap.Env) error {
		_, err := demo.Relations(ctx, env.DB, env.Logger, demo.RelationsOptions{
			Hasher:  env.Config.Auth.Hasher(),
			Migrate: env.Config.Database.Migrate,
		})
		return err
	})
}
