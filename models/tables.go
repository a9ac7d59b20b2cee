package models

import "github.com/hitec-hamburg/entitymap/schema"

var (
	UsersTable = schema.NewTable("users",
		schema.Column{Name: "id", Type: schema.Integer, PrimaryKey: true, AutoIncrement: true},
		schema.Column{Name: "username", Type: schema.Text},
		schema.Column{Name: "email", Type: schema.Text},
	)

	UserAuthTable = schema.NewTable("user_auth",
		schema.Column{
			Name: "id", Type: schema.Integer, PrimaryKey: true,
			References: &schema.Reference{Table: "users", Column: "id"},
		},
		schema.Column{Name: "username", Type: schema.Text},
		schema.Column{Name: "email", Type: schema.Text, Unique: true, Index: true},
		schema.Column{Name: "password_hash", Type: schema.Text, NotNull: true},
	)

	UserPostsTable = schema.NewTable("user_posts",
		schema.Column{Name: "id", Type: schema.Integer, PrimaryKey: true, AutoIncrement: true},
		schema.Column{
			Name: "user_id", Type: schema.Integer, NotNull: true, Index: true,
			References: &schema.Reference{Table: "users", Column: "id"},
		},
		schema.Column{Name: "content", Type: schema.Text},
	)
)

// Metadata is the full users schema, in creation order.
var Metadata = schema.NewMetadata(UsersTable, UserAuthTable, UserPostsTable)

var (
	// AuthRelation is users 1:1 user_auth, keyed by user_auth.id.
	AuthRelation = Metadata.Relate("auth", schema.OneToOne, UsersTable, UserAuthTable, "id")

	// PostsRelation is users 1:N user_posts, keyed by user_posts.user_id.
	PostsRelation = Metadata.Relate("posts", schema.OneToMany, UsersTable, UserPostsTable, "user_id")
)

var (
	UserMapping = schema.Mapping[User]{
		Table:  UsersTable,
		Fields: func(u *User) []any { return []any{&u.ID, &u.Username, &u.Email} },
	}

	AuthMapping = schema.Mapping[UserAuth]{
		Table:  UserAuthTable,
		Fields: func(a *UserAuth) []any { return []any{&a.ID, &a.Username, &a.Email, &a.PasswordHash} },
	}

	PostMapping = schema.Mapping[UserPost]{
		Table:  UserPostsTable,
		Fields: func(p *UserPost) []any { return []any{&p.ID, &p.UserID, &p.Content} },
	}
)
