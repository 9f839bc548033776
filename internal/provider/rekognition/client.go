package rekognition

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/smithy-go"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

const (
	errCodeAccessDenied         = "AccessDeniedException"
	errCodeInvalidParameter     = "InvalidParameterException"
	errCodeInvalidImageFormat   = "InvalidImageFormatException"
	errCodeImageTooLarge        = "ImageTooLargeException"
	errCodeThroughputExceeded   = "ProvisionedThroughputExceededException"
	errCodeThrottlingException  = "ThrottlingException"
	errCodeUnrecognizedClient   = "UnrecognizedClientException"
	errCodeInvalidSignature     = "InvalidSignatureException"
	errCodeExpiredToken         = "ExpiredTokenException"
	errCodeLimitExceededMessage = "LimitExceededException"
)

// detectFacesAPI is the slice of the Rekognition client used for face location
type detectFacesAPI interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

// Client wraps the AWS Rekognition client
type Client struct {
	rekognition detectFacesAPI
	config      Config
}

// NewClient creates a new Rekognition client with the provided configuration
// It uses the AWS default credential chain to authenticate
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Client{
		rekognition: rekognition.NewFromConfig(awsCfg),
		config:      cfg,
	}, nil
}

// classifyError maps Rekognition API error codes to package and domain errors.
// It returns ok=false for errors that should be surfaced unchanged.
func classifyError(err error) (mapped error, ok bool) {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err, false
	}

	switch apiErr.ErrorCode() {
	case errCodeAccessDenied, errCodeUnrecognizedClient, errCodeInvalidSignature, errCodeExpiredToken:
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.ErrorMessage()), true
	case errCodeInvalidImageFormat, errCodeImageTooLarge, errCodeInvalidParameter:
		return domain.ErrInvalidImage.WithError(err), true
	case errCodeThroughputExceeded, errCodeThrottlingException, errCodeLimitExceededMessage:
		return fmt.Errorf("%w: %s", ErrThrottled, apiErr.ErrorMessage()), true
	}
	return err, false
}
