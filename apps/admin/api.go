package main

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/masomo/apps/api/echo"
	"github.com/trezcool/masomo/core/tables"
	"github.com/trezcool/masomo/core/user"
)

// the principal the CLI authenticates as when calling the API
const cliPrincipalID = "masomo-admin"

var errAPIUnreachable = errors.New("the API is unreachable")

// apiClient calls the admin endpoints of a running API.
type apiClient struct {
	baseURL    string
	tokens     echoapi.TokenIssuer
	httpClient *http.Client
}

func newAPIClient(baseURL string, secretKey []byte, issuer string) apiClient {
	return apiClient{
		baseURL: baseURL,
		tokens: echoapi.TokenIssuer{
			Issuer:     issuer,
			SecretKey:  secretKey,
			Expiration: time.Minute,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// flushCache drops the cached responses of the table, or of every table when it is empty.
func (c apiClient) flushCache(ctx context.Context, table string) error {
	endpoint := c.baseURL + "/v1/cache"
	if table != "" {
		endpoint += "/" + url.PathEscape(table)
	}

	token, err := c.tokens.GenerateToken(user.User{
		ID:       cliPrincipalID,
		Username: cliPrincipalID,
		Roles:    []string{user.RoleAdminOwner},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(errAPIUnreachable, "%s: %v", c.baseURL, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusNotFound:
		return errors.Wrapf(tables.ErrUnknownTable, "%q", table)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
	return errors.Errorf("API returned status %d: %s", resp.StatusCode, body)
}
