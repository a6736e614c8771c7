package identitysvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

// HostedProvider manages accounts through a hosted identity service's backend API.
type HostedProvider struct {
	baseURL   string
	secretKey string
	send      func(ctx context.Context, req rest.Request) (*rest.Response, error) // mockable
}

var _ school.IdentityProvider = (*HostedProvider)(nil)

func NewHostedProvider(conf *core.Config) *HostedProvider {
	return &HostedProvider{
		baseURL:   conf.Identity.BaseURL,
		secretKey: conf.Identity.SecretKey,
		send:      rest.SendWithContext,
	}
}

type (
	hostedUser struct {
		Username       string            `json:"username,omitempty"`
		Password       string            `json:"password,omitempty"`
		FirstName      string            `json:"first_name,omitempty"`
		LastName       string            `json:"last_name,omitempty"`
		EmailAddress   []string          `json:"email_address,omitempty"`
		PublicMetadata map[string]string `json:"public_metadata,omitempty"`
	}

	// hostedUserPatch sends email_address as [] when the address is cleared.
	hostedUserPatch struct {
		Username     string    `json:"username,omitempty"`
		Password     string    `json:"password,omitempty"`
		FirstName    string    `json:"first_name,omitempty"`
		LastName     string    `json:"last_name,omitempty"`
		EmailAddress *[]string `json:"email_address,omitempty"`
	}

	hostedErrors struct {
		Errors []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
)

// identifier conflicts reported by the hosted service
var existsCodes = map[string]bool{
	"form_identifier_exists": true,
	"form_username_exists":   true,
}

func (p *HostedProvider) request(ctx context.Context, method rest.Method, path string, body interface{}) (*rest.Response, error) {
	req := rest.Request{
		Method:  method,
		BaseURL: p.baseURL + path,
		Headers: map[string]string{
			"Authorization": "Bearer " + p.secretKey,
			"Content-Type":  "application/json",
		},
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request")
		}
		req.Body = b
	}

	res, err := p.send(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Wrap(core.ErrTimeout, "identity request")
		}
		return nil, errors.Wrap(err, "identity request")
	}
	if res.StatusCode < http.StatusBadRequest {
		return res, nil
	}

	var hErr hostedErrors
	_ = json.Unmarshal([]byte(res.Body), &hErr)
	for _, e := range hErr.Errors {
		if existsCodes[e.Code] {
			return nil, school.ErrAccountExists
		}
	}
	if res.StatusCode == http.StatusNotFound {
		return nil, core.ErrNotFound
	}
	return nil, errors.Errorf("identity service: status %d: %s", res.StatusCode, res.Body)
}

func (p *HostedProvider) CreateUser(ctx context.Context, acc school.NewAccount) (string, error) {
	body := hostedUser{
		Username:       acc.Username,
		Password:       acc.Password,
		FirstName:      acc.Name,
		LastName:       acc.Surname,
		PublicMetadata: map[string]string{"role": string(acc.Role)},
	}
	if acc.Email != "" {
		body.EmailAddress = []string{acc.Email}
	}
	res, err := p.request(ctx, rest.Post, "/v1/users", body)
	if err != nil {
		return "", errors.Wrap(err, "creating account")
	}

	var created struct {
		ID string `json:"id"`
	}
	if err = json.Unmarshal([]byte(res.Body), &created); err != nil {
		return "", errors.Wrap(err, "decoding account")
	}
	if created.ID == "" {
		return "", errors.New("identity service returned no account id")
	}
	return created.ID, nil
}

func (p *HostedProvider) UpdateUser(ctx context.Context, id string, upd school.AccountUpdate) error {
	if upd.IsEmpty() {
		return nil
	}
	body := hostedUserPatch{
		Username:  upd.Username,
		Password:  upd.Password,
		FirstName: upd.Name,
		LastName:  upd.Surname,
	}
	switch {
	case upd.Email != "":
		body.EmailAddress = &[]string{upd.Email}
	case upd.ClearEmail:
		body.EmailAddress = &[]string{}
	}
	_, err := p.request(ctx, rest.Patch, fmt.Sprintf("/v1/users/%s", id), body)
	return errors.Wrap(err, "updating account")
}

// DeleteUser removes the account; an account already gone is not an error.
func (p *HostedProvider) DeleteUser(ctx context.Context, id string) error {
	_, err := p.request(ctx, rest.Delete, fmt.Sprintf("/v1/users/%s", id), nil)
	if errors.Cause(err) == core.ErrNotFound {
		return nil
	}
	return errors.Wrap(err, "deleting account")
}
