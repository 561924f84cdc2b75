package awserrors_test

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/eks/types"
	"github.com/aws/smithy-go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/kubernaut-sub024/pkg/resilience"
	"github.com/jordigilh/kubernaut-sub024/pkg/resilience/awserrors"
)

func strptr(s string) *string { return &s }

var _ = Describe("Classify", func() {
	Context("with typed EKS exceptions", func() {
		It("should map ResourceNotFoundException to NotFound", func() {
			err := fmt.Errorf("describing association: %w",
				&types.ResourceNotFoundException{Message: strptr("association not found")})

			category, retryable, decided := awserrors.Classify(err)
			Expect(decided).To(BeTrue())
			Expect(category).To(Equal(resilience.CategoryNotFound))
			Expect(retryable).To(BeFalse())
		})

		It("should map InvalidParameterException to PermanentConfiguration", func() {
			err := &types.InvalidParameterException{Message: strptr("roleArn is malformed")}

			category, retryable, decided := awserrors.Classify(err)
			Expect(decided).To(BeTrue())
			Expect(category).To(Equal(resilience.CategoryPermanentConfiguration))
			Expect(retryable).To(BeFalse())
		})

		It("should map ResourceLimitExceededException to PermanentConfiguration", func() {
			err := &types.ResourceLimitExceededException{Message: strptr("association quota reached")}

			category, _, decided := awserrors.Classify(err)
			Expect(decided).To(BeTrue())
			Expect(category).To(Equal(resilience.CategoryPermanentConfiguration))
		})

		It("should map ServerException to TransientDependency", func() {
			err := &types.ServerException{Message: strptr("internal failure")}

			category, retryable, decided := awserrors.Classify(err)
			Expect(decided).To(BeTrue())
			Expect(category).To(Equal(resilience.CategoryTransientDependency))
			Expect(retryable).To(BeTrue())
		})
	})

	Context("with generic API error codes", func() {
		apiError := func(code string, fault smithy.ErrorFault) error {
			return &smithy.GenericAPIError{Code: code, Message: "from api", Fault: fault}
		}

		It("should map throttling codes to TransientDependency", func() {
			for _, code := range []string{"ThrottlingException", "TooManyRequestsException", "SlowDown"} {
				category, retryable, decided := awserrors.Classify(apiError(code, smithy.FaultClient))
				Expect(decided).To(BeTrue(), code)
				Expect(category).To(Equal(resilience.CategoryTransientDependency), code)
				Expect(retryable).To(BeTrue(), code)
			}
		})

		It("should map access denial codes to AuthorizationFailure", func() {
			for _, code := range []string{"AccessDeniedException", "UnauthorizedOperation", "ExpiredTokenException"} {
				category, retryable, decided := awserrors.Classify(apiError(code, smithy.FaultClient))
				Expect(decided).To(BeTrue(), code)
				Expect(category).To(Equal(resilience.CategoryAuthorizationFailure), code)
				Expect(retryable).To(BeFalse(), code)
			}
		})

		It("should map validation codes to PermanentConfiguration", func() {
			category, _, decided := awserrors.Classify(apiError("ValidationException", smithy.FaultClient))
			Expect(decided).To(BeTrue())
			Expect(category).To(Equal(resilience.CategoryPermanentConfiguration))
		})

		It("should treat unrecognized server faults as TransientDependency", func() {
			category, retryable, decided := awserrors.Classify(apiError("SomethingNew", smithy.FaultServer))
			Expect(decided).To(BeTrue())
			Expect(category).To(Equal(resilience.CategoryTransientDependency))
			Expect(retryable).To(BeTrue())
		})

		It("should leave unrecognized client faults undecided", func() {
			_, _, decided := awserrors.Classify(apiError("SomethingNew", smithy.FaultClient))
			Expect(decided).To(BeFalse())
		})
	})

	Context("with non-AWS errors", func() {
		It("should leave plain errors undecided for the default rules", func() {
			_, _, decided := awserrors.Classify(errors.New("not an AWS failure"))
			Expect(decided).To(BeFalse())
		})

		It("should leave nil undecided", func() {
			_, _, decided := awserrors.Classify(nil)
			Expect(decided).To(BeFalse())
		})
	})

	Context("plugged into a resilience core", func() {
		It("should satisfy the Classifier contract", func() {
			var classifier resilience.Classifier = awserrors.Classify
			category, retryable, decided := classifier(&types.ServerException{Message: strptr("boom")})
			Expect(decided).To(BeTrue())
			Expect(category).To(Equal(resilience.CategoryTransientDependency))
			Expect(retryable).To(BeTrue())
		})
	})
})
