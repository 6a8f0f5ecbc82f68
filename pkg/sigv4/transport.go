// Package sigv4 signs outbound OTLP export requests with AWS Signature
// Version 4, for AWS-hosted ingestion endpoints such as OpenSearch Ingestion
// pipelines. The signature covers the literal request body, so it is
// recomputed on every request; a cached signature would carry a stale body
// hash and be rejected.
package sigv4

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/chainguard-dev/clog"
)

// DefaultService is the AWS service name used for signing when none is set.
// "osis" is OpenSearch Ingestion; use "es" for OpenSearch Service direct.
const DefaultService = "osis"

// Options configures a signing Transport.
type Options struct {
	// Region is the AWS region to sign for. Falls back to the region from
	// the default credential/config chain.
	Region string
	// Service is the AWS service name for signing. Defaults to DefaultService.
	Service string
	// Base is the transport that performs the actual request. Defaults to
	// http.DefaultTransport.
	Base http.RoundTripper
	// Credentials overrides the provider resolved from the default chain.
	// Intended for tests.
	Credentials aws.CredentialsProvider
}

// Transport is an http.RoundTripper that adds a SigV4 signature to every
// request before delegating to the base transport.
type Transport struct {
	base    http.RoundTripper
	creds   aws.CredentialsProvider
	signer  *v4.Signer
	region  string
	service string
}

// NewTransport resolves credentials and region through the standard AWS
// chain (env vars, shared config, IAM roles, IMDS) and returns a signing
// transport. Construction fails if no credentials or no region resolve, so
// a misconfigured pipeline surfaces at Register time rather than silently
// exporting unsigned.
func NewTransport(ctx context.Context, opts Options) (*Transport, error) {
	region := opts.Region
	creds := opts.Credentials

	if creds == nil || region == "" {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		if creds == nil {
			creds = cfg.Credentials
		}
		if region == "" {
			region = cfg.Region
		}
	}

	if creds == nil {
		return nil, fmt.Errorf("no AWS credentials found: configure AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY, ~/.aws/credentials, or an IAM role")
	}
	if _, err := creds.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("resolving AWS credentials: %w", err)
	}
	if region == "" {
		return nil, fmt.Errorf("no AWS region found: set Region, AWS_REGION, or ~/.aws/config")
	}

	service := opts.Service
	if service == "" {
		service = DefaultService
	}
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}

	clog.FromContext(ctx).Infof("SigV4 signing enabled: service=%s region=%s", service, region)

	return &Transport{
		base:    base,
		creds:   creds,
		signer:  v4.NewSigner(),
		region:  region,
		service: service,
	}, nil
}

// RoundTrip signs the request over its exact body and forwards it. A
// credential or signing failure fails this export attempt; the exporter's
// retry policy decides what happens next.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading request body for signing: %w", err)
		}
	}

	signed := req.Clone(req.Context())
	signed.Body = io.NopCloser(bytes.NewReader(body))
	signed.ContentLength = int64(len(body))

	creds, err := t.creds.Retrieve(req.Context())
	if err != nil {
		return nil, fmt.Errorf("resolving AWS credentials: %w", err)
	}

	hash := sha256.Sum256(body)
	if err := t.signer.SignHTTP(req.Context(), creds, signed, hex.EncodeToString(hash[:]), t.service, t.region, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("signing request: %w", err)
	}

	return t.base.RoundTrip(signed)
}
