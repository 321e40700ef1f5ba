// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand initializes the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file if missing, initialize the database and run migrations",
		Action: r.Setup,
	}
}

// searchCommand queries the catalog.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the catalog for tracks",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results to print (0 for all)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Search,
	}
}

// streamCommand resolves a track url to its stream location.
func streamCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stream",
		Usage: "Print the stream URL for a track",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "url"},
		},
		Action: r.Stream,
	}
}

// authCommand handles identity operations.
func authCommand(r *Runner) *cli.Command {
	credentials := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Aliases:  []string{"e"},
				Usage:    "Account email address",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "password",
				Aliases:  []string{"p"},
				Usage:    "Account password",
				Sources:  cli.EnvVars("YTPLAY_PASSWORD"),
				Required: true,
			},
		}
	}

	return &cli.Command{
		Name:  "auth",
		Usage: "Sign up, sign in and manage the session",
		Commands: []*cli.Command{
			{
				Name:  "signup",
				Usage: "Create an account",
				Flags: append(credentials(),
					&cli.StringFlag{
						Name:  "confirm",
						Usage: "Repeat the password",
					},
					&cli.StringFlag{
						Name:  "username",
						Usage: "Profile username",
					},
					&cli.StringFlag{
						Name:  "avatar-url",
						Usage: "Profile avatar URL",
					},
				),
				Action: r.AuthSignUp,
			},
			{
				Name:   "login",
				Usage:  "Sign in with email and password",
				Flags:  credentials(),
				Action: r.AuthLogin,
			},
			{
				Name:  "oauth",
				Usage: "Sign in with an OAuth provider in the browser",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Provider name configured under auth.oauth",
						Value: "google",
					},
				},
				Action: r.AuthOAuth,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and forget the saved session",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the current session",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "Reload the user from the auth API, e.g. after confirming the email",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// libraryCommand handles liked songs and playlists.
func libraryCommand(r *Runner) *cli.Command {
	trackFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Track title"},
			&cli.StringFlag{Name: "artist", Usage: "Track artist"},
			&cli.StringFlag{Name: "cover", Usage: "Track cover image URL"},
		}
	}

	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Liked songs and playlists",
		Commands: []*cli.Command{
			{
				Name:  "liked",
				Usage: "List liked tracks, most recent first",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.LibraryLiked,
			},
			{
				Name:  "like",
				Usage: "Toggle the like on a track",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Flags:  trackFlags(),
				Action: r.LibraryLike,
			},
			{
				Name:  "playlists",
				Usage: "List playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.LibraryPlaylists,
			},
			{
				Name:  "create",
				Usage: "Create a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "cover", Usage: "Playlist cover image URL"},
				},
				Action: r.LibraryCreate,
			},
			{
				Name:  "delete",
				Usage: "Delete a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.LibraryDelete,
			},
			{
				Name:  "add",
				Usage: "Append a track to a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "url"},
				},
				Flags:  trackFlags(),
				Action: r.LibraryAdd,
			},
			{
				Name:  "export",
				Usage: "Export a playlist or the liked tracks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "playlist",
						Usage: "Playlist ID to export, or \"liked\"",
						Value: "liked",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, md, txt or json",
						Value:   "txt",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file, or directory for md (prints to stdout when empty)",
					},
				},
				Action: r.LibraryExport,
			},
		},
	}
}
