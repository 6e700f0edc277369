package hangupby

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRefine_Table(t *testing.T) {
	present := func() bool { return true }
	absent := func() bool { return false }

	cases := []struct {
		in       Value
		customer func() bool
		want     Value
	}{
		{CompletedExternalWarmTransfer, absent, ExternalWarmTransfer},
		{ColdTransfer, absent, ColdTransfer},
		{ExternalColdTransfer, absent, ExternalColdTransfer},
		{ExternalWarmTransfer, present, Customer},
		{Consult, absent, Customer},
		{Consult, present, Consult},
		{WarmTransfer, absent, Customer},
		{WarmTransfer, present, WarmTransfer},
		{Customer, absent, Customer},
		{Agent, absent, Agent},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Refine(tc.in, tc.customer), "refine %q", tc.in)
	}
}

func TestRefine_OnlyConsultAndWarmQueryCustomer(t *testing.T) {
	for _, v := range Values() {
		called := false
		Refine(v, func() bool { called = true; return true })
		assert.Equal(t, NeedsCustomerLookup(v), called, "lookup for %q", v)
	}
}

func TestRefine_FixedPointForTerminalValues(t *testing.T) {
	for _, customer := range []bool{true, false} {
		lookup := func() bool { return customer }
		for _, v := range Values() {
			if v == CompletedExternalWarmTransfer {
				continue
			}
			once := Refine(v, lookup)
			assert.Equal(t, once, Refine(once, lookup), "refine twice %q (customer=%v)", v, customer)
		}
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue("External Cold Transfer")
	assert.NoError(t, err)
	assert.Equal(t, ExternalColdTransfer, v)

	_, err = ParseValue("Nobody")
	assert.ErrorIs(t, err, ErrInvalidValue)
}
