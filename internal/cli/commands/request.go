package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/userauth-app/authclient/internal/client"
)

// NewRequestCmd creates the request command, a generic authenticated call
func NewRequestCmd(app *App) *cobra.Command {
	var data string
	var headers []string
	var noRefresh bool

	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send an authenticated request and print the response body",
		Example: `  authctl request GET /auth/me
  authctl request PUT /settings --data '{"theme":"dark"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := buildRequestSpec(args[0], args[1], data, headers)
			if err != nil {
				return err
			}
			spec.NoRefresh = noRefresh

			store, _, err := app.RestoredSession(cmd.Context())
			if err != nil {
				return err
			}

			res, err := store.Client().Send(cmd.Context(), spec)
			if err != nil {
				return describeError(err)
			}
			body := res.Body()
			if len(body) == 0 {
				app.printf("%d %s\n", res.StatusCode(), http.StatusText(res.StatusCode()))
				return nil
			}
			app.printf("%s\n", strings.TrimRight(string(body), "\n"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Extra header as 'Name: value' (repeatable)")
	cmd.Flags().BoolVar(&noRefresh, "no-refresh", false, "Do not refresh the credential on 401")

	return cmd
}

func buildRequestSpec(method, path, data string, headers []string) (*client.RequestSpec, error) {
	spec := &client.RequestSpec{
		Method: strings.ToUpper(method),
		Path:   "/" + strings.TrimLeft(path, "/"),
	}

	if data != "" {
		var body any
		if err := json.Unmarshal([]byte(data), &body); err != nil {
			return nil, fmt.Errorf("--data must be valid JSON: %w", err)
		}
		spec.Body = body
	}

	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		if spec.Headers == nil {
			spec.Headers = map[string]string{}
		}
		spec.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return spec, nil
}
