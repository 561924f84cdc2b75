// Package awserrors classifies AWS SDK failures into the resilience error
// taxonomy, for controllers whose dependencies are AWS APIs (EKS pod
// identity, IAM, and similar remediation targets). It is plugged into a
// resilience.Core as its Classifier; anything it does not recognize falls
// through to the default rules.
package awserrors

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/eks/types"
	"github.com/aws/smithy-go"

	"github.com/jordigilh/kubernaut-sub024/pkg/resilience"
)

// Error codes shared across AWS services. Typed exceptions only exist per
// service package, so cross-service classification goes by code.
var (
	throttleCodes = codeSet(
		"ThrottlingException",
		"Throttling",
		"ThrottledException",
		"TooManyRequestsException",
		"RequestLimitExceeded",
		"RequestThrottled",
		"SlowDown",
	)

	authCodes = codeSet(
		"AccessDenied",
		"AccessDeniedException",
		"UnauthorizedOperation",
		"ExpiredToken",
		"ExpiredTokenException",
		"InvalidClientTokenId",
		"UnrecognizedClientException",
	)

	configCodes = codeSet(
		"ValidationException",
		"ValidationError",
		"InvalidParameterValue",
		"MissingParameter",
		"MalformedPolicyDocument",
	)

	notFoundCodes = codeSet(
		"ResourceNotFoundException",
		"NotFoundException",
		"NoSuchEntity",
	)
)

func codeSet(codes ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

// Classify maps an AWS SDK error to the resilience taxonomy. The third return
// reports whether the error was recognized; undecided errors fall through to
// resilience.Classify.
func Classify(err error) (resilience.ErrorCategory, bool, bool) {
	if err == nil {
		return 0, false, false
	}

	// Typed EKS exceptions first: these carry the strongest signal.
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return resilience.CategoryNotFound, false, true
	}
	var invalidParam *types.InvalidParameterException
	if errors.As(err, &invalidParam) {
		return resilience.CategoryPermanentConfiguration, false, true
	}
	var invalidReq *types.InvalidRequestException
	if errors.As(err, &invalidReq) {
		return resilience.CategoryPermanentConfiguration, false, true
	}
	var limit *types.ResourceLimitExceededException
	if errors.As(err, &limit) {
		// Account quota: retrying cannot raise it.
		return resilience.CategoryPermanentConfiguration, false, true
	}
	var serverErr *types.ServerException
	if errors.As(err, &serverErr) {
		return resilience.CategoryTransientDependency, true, true
	}
	var unavailable *types.ServiceUnavailableException
	if errors.As(err, &unavailable) {
		return resilience.CategoryTransientDependency, true, true
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return 0, false, false
	}

	code := apiErr.ErrorCode()
	if _, ok := throttleCodes[code]; ok {
		return resilience.CategoryTransientDependency, true, true
	}
	if _, ok := authCodes[code]; ok {
		return resilience.CategoryAuthorizationFailure, false, true
	}
	if _, ok := configCodes[code]; ok {
		return resilience.CategoryPermanentConfiguration, false, true
	}
	if _, ok := notFoundCodes[code]; ok {
		return resilience.CategoryNotFound, false, true
	}

	// Server faults without a recognized code are retry-safe.
	if apiErr.ErrorFault() == smithy.FaultServer {
		return resilience.CategoryTransientDependency, true, true
	}

	return 0, false, false
}
