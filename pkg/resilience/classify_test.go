package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/jordigilh/kubernaut-sub024/pkg/resilience"
)

// timeoutError satisfies net.Error for timeout classification tests.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ = Describe("Classify", func() {
	Context("when the resource vanished", func() {
		It("should return NotFound, not retryable, for NotFound errors", func() {
			err := apierrors.NewNotFound(schema.GroupResource{Resource: "remediationrequests"}, "rr-1")
			category, retryable := resilience.Classify(err)
			Expect(category).To(Equal(resilience.CategoryNotFound))
			Expect(retryable).To(BeFalse())
		})

		It("should return NotFound for Gone errors", func() {
			err := apierrors.NewGone("resource version too old")
			category, _ := resilience.Classify(err)
			Expect(category).To(Equal(resilience.CategoryNotFound))
		})

		It("should see through wrapping", func() {
			err := fmt.Errorf("fetching target: %w",
				apierrors.NewNotFound(schema.GroupResource{Resource: "pods"}, "worker-0"))
			category, _ := resilience.Classify(err)
			Expect(category).To(Equal(resilience.CategoryNotFound))
		})
	})

	Context("when the caller's context ended", func() {
		It("should return Cancelled for context.Canceled", func() {
			category, retryable := resilience.Classify(context.Canceled)
			Expect(category).To(Equal(resilience.CategoryCancelled))
			Expect(retryable).To(BeFalse())
		})

		It("should return Cancelled for deadline exceeded", func() {
			err := fmt.Errorf("calling analysis service: %w", context.DeadlineExceeded)
			category, _ := resilience.Classify(err)
			Expect(category).To(Equal(resilience.CategoryCancelled))
		})
	})

	Context("when the dependency is struggling", func() {
		It("should return TransientDependency, retryable, for timeouts", func() {
			category, retryable := resilience.Classify(apierrors.NewTimeoutError("request timed out", 5))
			Expect(category).To(Equal(resilience.CategoryTransientDependency))
			Expect(retryable).To(BeTrue())
		})

		It("should return TransientDependency for rate limiting", func() {
			category, retryable := resilience.Classify(apierrors.NewTooManyRequests("slow down", 10))
			Expect(category).To(Equal(resilience.CategoryTransientDependency))
			Expect(retryable).To(BeTrue())
		})

		It("should return TransientDependency for service unavailable", func() {
			category, _ := resilience.Classify(apierrors.NewServiceUnavailable("backend down"))
			Expect(category).To(Equal(resilience.CategoryTransientDependency))
		})

		It("should return TransientDependency for network timeouts", func() {
			category, retryable := resilience.Classify(fmt.Errorf("posting webhook: %w", timeoutError{}))
			Expect(category).To(Equal(resilience.CategoryTransientDependency))
			Expect(retryable).To(BeTrue())
		})

		It("should return TransientDependency for connection refusals", func() {
			category, _ := resilience.Classify(fmt.Errorf("dial: %w", syscall.ECONNREFUSED))
			Expect(category).To(Equal(resilience.CategoryTransientDependency))
		})

		It("should return TransientDependency for internal server errors", func() {
			category, _ := resilience.Classify(apierrors.NewInternalError(errors.New("etcd leader changed")))
			Expect(category).To(Equal(resilience.CategoryTransientDependency))
		})
	})

	Context("when the configuration is wrong", func() {
		It("should return PermanentConfiguration, not retryable, for invalid specs", func() {
			err := apierrors.NewInvalid(schema.GroupKind{Kind: "RemediationPolicy"}, "policy-1", nil)
			category, retryable := resilience.Classify(err)
			Expect(category).To(Equal(resilience.CategoryPermanentConfiguration))
			Expect(retryable).To(BeFalse())
		})

		It("should return PermanentConfiguration for bad requests", func() {
			category, _ := resilience.Classify(apierrors.NewBadRequest("unknown field"))
			Expect(category).To(Equal(resilience.CategoryPermanentConfiguration))
		})

		It("should honor the Permanent marker on arbitrary domain errors", func() {
			err := resilience.Permanent(errors.New("policy syntax error at line 3"))
			category, retryable := resilience.Classify(err)
			Expect(category).To(Equal(resilience.CategoryPermanentConfiguration))
			Expect(retryable).To(BeFalse())
		})
	})

	Context("when credentials are wrong", func() {
		It("should return AuthorizationFailure, not retryable, for unauthorized", func() {
			category, retryable := resilience.Classify(apierrors.NewUnauthorized("token expired"))
			Expect(category).To(Equal(resilience.CategoryAuthorizationFailure))
			Expect(retryable).To(BeFalse())
		})

		It("should return AuthorizationFailure for forbidden", func() {
			err := apierrors.NewForbidden(schema.GroupResource{Resource: "secrets"}, "creds", errors.New("RBAC denied"))
			category, _ := resilience.Classify(err)
			Expect(category).To(Equal(resilience.CategoryAuthorizationFailure))
		})
	})

	Context("when an optimistic write lost a race", func() {
		It("should return WriteConflict, retryable", func() {
			err := apierrors.NewConflict(schema.GroupResource{Resource: "remediationrequests"}, "rr-1",
				errors.New("the object has been modified"))
			category, retryable := resilience.Classify(err)
			Expect(category).To(Equal(resilience.CategoryWriteConflict))
			Expect(retryable).To(BeTrue())
		})
	})

	Context("when a sub-operation may proceed degraded", func() {
		It("should return DependencyDegraded for the Degraded marker", func() {
			err := resilience.Degraded(errors.New("environment classifier unreachable"))
			category, retryable := resilience.Classify(err)
			Expect(category).To(Equal(resilience.CategoryDependencyDegraded))
			Expect(retryable).To(BeFalse())
		})
	})

	Context("when the error matches no rule", func() {
		It("should default to TransientDependency, retryable", func() {
			category, retryable := resilience.Classify(errors.New("something unexpected"))
			Expect(category).To(Equal(resilience.CategoryTransientDependency))
			Expect(retryable).To(BeTrue())
		})
	})
})
