package accounting

import (
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
)

var fundOrgPattern = regexp.MustCompile(`^(?P<orgn>[^-]+)-(?P<fund>.+)$`)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testRules() Rules {
	return Rules{
		FundOrgPattern:    fundOrgPattern,
		DefaultAccount:    "7000",
		DebitDescription:  "Research computing {source} {period}",
		CreditDescription: "Recovery {source} {period}",
		Sources: map[string]SourceRule{
			"aws": {AccountCode: "7100", CreditFundOrg: "ITS-RECOVERY"},
		},
	}
}

func TestParseFundOrg_NamedGroups(t *testing.T) {
	components, ok := ParseFundOrg(fundOrgPattern, "BIOLOGY-GRANTS-2025")
	require.True(t, ok)
	assert.Equal(t, "BIOLOGY", components["orgn"])
	assert.Equal(t, "GRANTS-2025", components["fund"])
}

func TestParseFundOrg_NoMatch(t *testing.T) {
	components, ok := ParseFundOrg(fundOrgPattern, "nodelimiter")
	assert.False(t, ok)
	assert.Empty(t, components)
}

func TestParseFundOrg_NilPattern(t *testing.T) {
	components, ok := ParseFundOrg(nil, "BIOLOGY-GRANTS-2025")
	assert.False(t, ok)
	assert.Empty(t, components)
}

func TestBuildEntries_TwoProjectsOneSource(t *testing.T) {
	lines := []ChargeLine{
		{PeriodName: "2025-06", SourceName: "aws", FundOrg: "BIOLOGY-GRANTS-2025", Amount: dec("100.00")},
		{PeriodName: "2025-06", SourceName: "aws", FundOrg: "CHEM-OPS-2025", Amount: dec("50.00")},
		{PeriodName: "2025-06", SourceName: "aws", FundOrg: "BIOLOGY-GRANTS-2025", Amount: dec("25.00")},
	}

	entries := BuildEntries(lines, testRules())
	require.Len(t, entries, 3)

	assert.Equal(t, domain.EntryDebit, entries[0].Side)
	assert.Equal(t, "BIOLOGY-GRANTS-2025", entries[0].FundOrg)
	assert.True(t, entries[0].Amount.Equal(dec("125.00")))
	assert.Equal(t, "BIOLOGY", entries[0].Orgn)
	assert.Equal(t, "GRANTS-2025", entries[0].Fund)
	assert.Equal(t, "7100", entries[0].Account)
	assert.Equal(t, "Research computing aws 2025-06", entries[0].Description)

	assert.Equal(t, domain.EntryDebit, entries[1].Side)
	assert.Equal(t, "CHEM-OPS-2025", entries[1].FundOrg)
	assert.True(t, entries[1].Amount.Equal(dec("50.00")))

	credit := entries[2]
	assert.Equal(t, domain.EntryCredit, credit.Side)
	assert.Equal(t, "aws", credit.SourceName)
	assert.Equal(t, "ITS-RECOVERY", credit.FundOrg)
	assert.Equal(t, "7100", credit.Account, "credit offsets on the debit account")
	assert.True(t, credit.Amount.Equal(dec("175.00")))

	require.NoError(t, CheckBalance(entries))
}

func TestBuildEntries_CreditUsesSameAccountAsDebits(t *testing.T) {
	lines := []ChargeLine{
		{PeriodName: "2025-06", SourceName: "aws", FundOrg: "BIOLOGY-GRANTS-2025", Amount: dec("40.00")},
	}

	entries := BuildEntries(lines, testRules())
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EntryDebit, entries[0].Side)
	assert.Equal(t, domain.EntryCredit, entries[1].Side)
	assert.Equal(t, entries[0].Account, entries[1].Account)
}

func TestBuildEntries_CreditEmittedWithoutSourceConfig(t *testing.T) {
	lines := []ChargeLine{
		{PeriodName: "2025-06", SourceName: "onprem", FundOrg: "PHYS-CORE", Amount: dec("10.00")},
	}

	entries := BuildEntries(lines, testRules())
	require.Len(t, entries, 2)

	credit := entries[1]
	assert.Equal(t, domain.EntryCredit, credit.Side)
	assert.Empty(t, credit.FundOrg)
	assert.Equal(t, "7000", credit.Account, "falls back to the default account")
	assert.True(t, credit.Amount.Equal(dec("10.00")))
	require.NoError(t, CheckBalance(entries))
}

func TestBuildEntries_ChargeAccountCodeWins(t *testing.T) {
	lines := []ChargeLine{
		{PeriodName: "2025-06", SourceName: "aws", FundOrg: "BIOLOGY-GRANTS-2025", AccountCode: "7255", Amount: dec("5")},
	}

	entries := BuildEntries(lines, testRules())
	require.Len(t, entries, 2)
	assert.Equal(t, "7255", entries[0].Account)
}

func TestBuildEntries_UnparsableFundOrgKeepsRawTag(t *testing.T) {
	lines := []ChargeLine{
		{PeriodName: "2025-06", SourceName: "aws", FundOrg: "nodelimiter", Amount: dec("5")},
	}

	entries := BuildEntries(lines, testRules())
	require.Len(t, entries, 2)
	assert.Equal(t, "nodelimiter", entries[0].FundOrg)
	assert.Empty(t, entries[0].Fund)
	assert.Empty(t, entries[0].Orgn)
	assert.Empty(t, entries[0].Components)
}

func TestBuildEntries_ZeroAmountsSkipped(t *testing.T) {
	lines := []ChargeLine{
		{PeriodName: "2025-06", SourceName: "aws", FundOrg: "BIOLOGY-GRANTS-2025", Amount: decimal.Zero},
	}

	entries := BuildEntries(lines, testRules())
	assert.Empty(t, entries)
}

func TestBuildEntries_DeterministicOrdering(t *testing.T) {
	lines := []ChargeLine{
		{PeriodName: "2025-06", SourceName: "onprem", FundOrg: "Z-FUND", Amount: dec("1")},
		{PeriodName: "2025-06", SourceName: "aws", FundOrg: "A-FUND", Amount: dec("2")},
		{PeriodName: "2025-06", SourceName: "aws", FundOrg: "B-FUND", Amount: dec("3")},
	}

	first := BuildEntries(lines, testRules())
	second := BuildEntries(lines, testRules())
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Side, second[i].Side)
		assert.Equal(t, first[i].SourceName, second[i].SourceName)
		assert.Equal(t, first[i].FundOrg, second[i].FundOrg)
	}
	assert.Equal(t, "aws", first[0].SourceName)
	assert.Equal(t, "A-FUND", first[0].FundOrg)
	assert.Equal(t, "B-FUND", first[1].FundOrg)
	assert.Equal(t, "onprem", first[2].SourceName)
}

func TestCheckBalance_Unbalanced(t *testing.T) {
	entries := []domain.JournalEntry{
		{Side: domain.EntryDebit, Amount: dec("10")},
		{Side: domain.EntryCredit, Amount: dec("9.99")},
	}

	err := CheckBalance(entries)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnbalanced)
	assert.Contains(t, err.Error(), "10")
	assert.Contains(t, err.Error(), "9.99")
}

func TestCheckBalance_EmptyIsBalanced(t *testing.T) {
	assert.NoError(t, CheckBalance(nil))
}
