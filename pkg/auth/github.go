// Package auth decides whether an inbound GitHub webhook record is authentic.
//
// Records arrive as the JSON body produced by the API Gateway mapping, with the
// request metadata nested under "additional-data":
//
//	{
//	  ...github payload...,
//	  "additional-data": {
//	    "source-ip": "192.30.252.10",
//	    "allowed-ips": "192.30.252.0/22,185.199.108.0/22",
//	    "input-parameters": {"header": {"X-Hub-Signature-256": "sha256=..."}}
//	  }
//	}
package auth

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/mosajjal/devops-events/pkg/iprange"
	"github.com/mosajjal/devops-events/pkg/secrets"
)

const (
	additionalDataKey = "additional-data"
	signatureHeader   = "X-Hub-Signature-256"
	signaturePrefix   = "sha256="

	pathHeaders   = additionalDataKey + ".input-parameters.header"
	pathSignature = pathHeaders + "." + signatureHeader
	pathSourceIP  = additionalDataKey + ".source-ip"
	pathAllowed   = additionalDataKey + ".allowed-ips"
)

// Secret modes, as read from the UseSecret setting
const (
	UseSecretYes = "yes"
	UseSecretNo  = "no"
)

// Authorizer is implemented by GitHubAuthorizer
type Authorizer interface {
	Authorize(ctx context.Context, request []byte) bool
}

// Options configure a GitHubAuthorizer
type Options struct {
	// UseSecret is "yes" for HMAC verification. Any other value falls back to
	// the source ip allow list; "no" additionally rejects signed requests.
	UseSecret string
	// SecretID names the webhook secret in the secret store
	SecretID string
}

// GitHubAuthorizer verifies webhook requests by signature or source ip
type GitHubAuthorizer struct {
	opts    Options
	secrets secrets.Store
	inRange iprange.Matcher
	logger  *zap.Logger
}

// NewGitHubAuthorizer wires the secret store and ip matcher. A nil matcher
// uses iprange.InRange.
func NewGitHubAuthorizer(opts Options, store secrets.Store, matcher iprange.Matcher, logger *zap.Logger) *GitHubAuthorizer {
	if matcher == nil {
		matcher = iprange.InRange
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitHubAuthorizer{
		opts:    opts,
		secrets: store,
		inRange: matcher,
		logger:  logger,
	}
}

// Authorize reports whether request is authentic. It never panics on a
// malformed request; anything unexpected is unauthorized.
func (a *GitHubAuthorizer) Authorize(ctx context.Context, request []byte) bool {
	a.logger.Debug("begin authorizing github request")

	var ok bool
	switch {
	case hasSignature(request) && a.opts.UseSecret == UseSecretNo:
		a.logger.Error("configuration error: github webhook contained a signature but no secret is configured")
	case a.opts.UseSecret == UseSecretYes:
		secret, found := a.secrets.Secret(ctx, a.opts.SecretID)
		ok = found && a.validSignature(request, secret)
	default:
		ok = a.validSourceIP(request)
	}

	if ok {
		a.logger.Info("authorized github request")
	} else {
		a.logger.Error("unauthorized github request")
	}
	return ok
}

func (a *GitHubAuthorizer) validSignature(request []byte, secret string) bool {
	if !gjson.GetBytes(request, pathHeaders).Exists() {
		a.logger.Error("missing request headers")
		return false
	}
	sig := gjson.GetBytes(request, pathSignature)
	if !sig.Exists() {
		a.logger.Error("missing github signature")
		return false
	}

	body, err := canonicalBody(request)
	if err != nil {
		a.logger.Error("cannot build signed body", zap.Error(err))
		return false
	}

	expected := Sign(body, secret)
	if len(expected) != len(sig.String()) {
		a.logger.Error("compare signatures failed: length mismatch")
		return false
	}
	return hmac.Equal([]byte(expected), []byte(sig.String()))
}

func (a *GitHubAuthorizer) validSourceIP(request []byte) bool {
	sourceIP := strings.TrimSpace(gjson.GetBytes(request, pathSourceIP).String())
	if sourceIP == "" {
		a.logger.Error("missing source-ip")
		return false
	}
	allowed := stripSpace(gjson.GetBytes(request, pathAllowed).String())
	if allowed == "" {
		a.logger.Error("missing allowed-ips")
		return false
	}

	for _, cidr := range strings.Split(allowed, ",") {
		if a.inRange(sourceIP, cidr) {
			return true
		}
	}
	return false
}

// Sign returns the GitHub style "sha256=<hex hmac>" signature of body
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// SignRequest signs a webhook record the way it is verified, ignoring any
// additional-data it carries
func SignRequest(request []byte, secret string) (string, error) {
	body, err := canonicalBody(request)
	if err != nil {
		return "", err
	}
	return Sign(body, secret), nil
}

// canonicalBody is the request re-serialized without the additional-data key.
// Senders sign the normalized document, not the bytes they transmit.
func canonicalBody(request []byte) ([]byte, error) {
	if !gjson.ValidBytes(request) {
		return nil, errors.New("request is not valid JSON")
	}
	stripped := request
	for gjson.GetBytes(stripped, additionalDataKey).Exists() {
		var err error
		if stripped, err = sjson.DeleteBytes(stripped, additionalDataKey); err != nil {
			return nil, fmt.Errorf("remove %s: %w", additionalDataKey, err)
		}
	}
	var buf bytes.Buffer
	stringify(&buf, gjson.ParseBytes(stripped))
	return buf.Bytes(), nil
}

func hasSignature(request []byte) bool {
	v := gjson.GetBytes(request, pathSignature)
	switch v.Type {
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	case gjson.True, gjson.JSON:
		return true
	default:
		return false
	}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
