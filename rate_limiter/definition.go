package rate_limiter

import (
	"fmt"

	"golang.org/x/time/rate"
)

// Definition describes a limit on the rate of calls to a remote API
type Definition struct {
	Name string
	// calls per second; zero means unlimited
	FillRate   rate.Limit
	BucketSize int
}

func (d *Definition) String() string {
	if d.FillRate == 0 {
		return fmt.Sprintf("%s: unlimited", d.Name)
	}
	return fmt.Sprintf("%s: Limit(/s): %v, Burst: %d", d.Name, d.FillRate, d.BucketSize)
}

func (d *Definition) Validate() []string {
	var validationErrors []string
	if d.Name == "" {
		validationErrors = append(validationErrors, "rate limiter definition must specify a name")
	}
	if d.FillRate < 0 {
		validationErrors = append(validationErrors, "rate limiter fill rate must not be negative")
	}
	if d.FillRate > 0 && d.BucketSize < 1 {
		validationErrors = append(validationErrors, "rate limiter bucket size must be at least 1")
	}
	return validationErrors
}
