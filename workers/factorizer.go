package workers

import (
	"strconv"

	streamworker "github.com/freezer333/streaming-worker"
)

// Factorizer answers factorization requests until end-of-input: each
// {"factor", n} produces a {"factor", p} per prime factor in ascending order
// (with multiplicity) followed by {"factored", n}. Requests that do not parse
// as an integer >= 2 produce {"invalid", data} and the worker keeps serving.
type Factorizer struct{}

// NewFactorizer is the factorizer factory. It takes no options.
func NewFactorizer(streamworker.Options) (streamworker.Worker, error) {
	return &Factorizer{}, nil
}

// Execute serves factor requests until the inbox closes.
func (f *Factorizer) Execute(in *streamworker.Inbox, out *streamworker.Outbox) error {
	for {
		m, ok := in.Pop()
		if !ok {
			return nil
		}
		if m.Name != "factor" {
			continue
		}
		n, err := strconv.ParseUint(m.Data, 10, 64)
		if err != nil || n < 2 {
			if err := out.Send(streamworker.Message{Name: "invalid", Data: m.Data}); err != nil {
				return err
			}
			continue
		}
		for _, p := range primeFactors(n) {
			if err := out.Send(streamworker.Message{Name: "factor", Data: strconv.FormatUint(p, 10)}); err != nil {
				return err
			}
		}
		if err := out.Send(streamworker.Message{Name: "factored", Data: m.Data}); err != nil {
			return err
		}
	}
}

// primeFactors returns the prime factorization of n >= 2 in ascending order,
// with multiplicity.
func primeFactors(n uint64) []uint64 {
	var factors []uint64
	for n%2 == 0 {
		factors = append(factors, 2)
		n /= 2
	}
	for p := uint64(3); p*p <= n; p += 2 {
		for n%p == 0 {
			factors = append(factors, p)
			n /= p
		}
	}
	if n > 1 {
		factors = append(factors, n)
	}
	return factors
}
