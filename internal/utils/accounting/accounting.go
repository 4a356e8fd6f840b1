// Package accounting builds balanced double-entry journal lines from
// aggregated charges. Debits land on stakeholder fund/orgs, credits offset
// each cost source, and the two sides are verified to sum to the same total
// before anything leaves this package.
package accounting

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
)

// ErrUnbalanced is returned when generated debits and credits do not sum to
// the same total.
var ErrUnbalanced = errors.New("journal debits and credits do not balance")

// SourceRule carries the per-source account configuration. AccountCode is
// used for both the source's debits and its offsetting credit.
type SourceRule struct {
	AccountCode   string
	CreditFundOrg string
}

// Rules is the compiled general-ledger configuration.
type Rules struct {
	// FundOrgPattern splits a fund/org tag into named components, e.g.
	// `^(?P<orgn>[^-]+)-(?P<fund>.+)$`. Nil disables component parsing.
	FundOrgPattern *regexp.Regexp
	DefaultAccount string
	// Description templates support {source}, {period} and {fund_org}
	// placeholders.
	DebitDescription  string
	CreditDescription string
	Sources           map[string]SourceRule
}

// ChargeLine is a single billable amount entering journal generation.
type ChargeLine struct {
	PeriodName  string
	SourceName  string
	FundOrg     string
	AccountCode string // account tag on the charge, overrides source config
	Amount      decimal.Decimal
}

// ParseFundOrg applies pattern to tag and returns the named capture groups.
// The second return is false when the tag does not match or the pattern is
// nil.
func ParseFundOrg(pattern *regexp.Regexp, tag string) (map[string]string, bool) {
	if pattern == nil || tag == "" {
		return map[string]string{}, false
	}
	match := pattern.FindStringSubmatch(tag)
	if match == nil {
		return map[string]string{}, false
	}
	components := map[string]string{}
	for i, name := range pattern.SubexpNames() {
		if name != "" && i < len(match) {
			components[name] = match[i]
		}
	}
	return components, true
}

type debitKey struct {
	source  string
	fundOrg string
	account string
}

// BuildEntries produces one debit per distinct (fund/org, source, account)
// and one credit per source. Credits are always emitted, even when no
// credit fund/org is configured for the source, so the output balances by
// construction. Result order is deterministic: debits sorted by source then
// fund/org, followed by credits sorted by source.
func BuildEntries(lines []ChargeLine, rules Rules) []domain.JournalEntry {
	debits := map[debitKey]decimal.Decimal{}
	credits := map[string]decimal.Decimal{}
	var periodName string

	for _, line := range lines {
		if line.Amount.IsZero() {
			continue
		}
		if periodName == "" {
			periodName = line.PeriodName
		}
		key := debitKey{
			source:  line.SourceName,
			fundOrg: line.FundOrg,
			account: resolveDebitAccount(line, rules),
		}
		debits[key] = debits[key].Add(line.Amount)
		credits[line.SourceName] = credits[line.SourceName].Add(line.Amount)
	}

	debitKeys := make([]debitKey, 0, len(debits))
	for k := range debits {
		debitKeys = append(debitKeys, k)
	}
	sort.Slice(debitKeys, func(i, j int) bool {
		if debitKeys[i].source != debitKeys[j].source {
			return debitKeys[i].source < debitKeys[j].source
		}
		if debitKeys[i].fundOrg != debitKeys[j].fundOrg {
			return debitKeys[i].fundOrg < debitKeys[j].fundOrg
		}
		return debitKeys[i].account < debitKeys[j].account
	})

	entries := make([]domain.JournalEntry, 0, len(debits)+len(credits))
	for _, k := range debitKeys {
		components, _ := ParseFundOrg(rules.FundOrgPattern, k.fundOrg)
		entries = append(entries, domain.JournalEntry{
			Side:        domain.EntryDebit,
			PeriodName:  periodName,
			SourceName:  k.source,
			FundOrg:     k.fundOrg,
			Fund:        components["fund"],
			Orgn:        components["orgn"],
			Account:     k.account,
			Amount:      debits[k],
			Description: renderDescription(rules.DebitDescription, k.source, periodName, k.fundOrg),
			ReferenceID: fmt.Sprintf("%s-%s", periodName, k.source),
			Components:  components,
		})
	}

	creditSources := make([]string, 0, len(credits))
	for src := range credits {
		creditSources = append(creditSources, src)
	}
	sort.Strings(creditSources)
	for _, src := range creditSources {
		srcRule := rules.Sources[src]
		components, _ := ParseFundOrg(rules.FundOrgPattern, srcRule.CreditFundOrg)
		// The credit offsets the source's debits on the same account.
		account := srcRule.AccountCode
		if account == "" {
			account = rules.DefaultAccount
		}
		entries = append(entries, domain.JournalEntry{
			Side:        domain.EntryCredit,
			PeriodName:  periodName,
			SourceName:  src,
			FundOrg:     srcRule.CreditFundOrg,
			Fund:        components["fund"],
			Orgn:        components["orgn"],
			Account:     account,
			Amount:      credits[src],
			Description: renderDescription(rules.CreditDescription, src, periodName, srcRule.CreditFundOrg),
			ReferenceID: fmt.Sprintf("%s-%s", periodName, src),
			Components:  components,
		})
	}
	return entries
}

func resolveDebitAccount(line ChargeLine, rules Rules) string {
	if line.AccountCode != "" {
		return line.AccountCode
	}
	if srcRule, ok := rules.Sources[line.SourceName]; ok && srcRule.AccountCode != "" {
		return srcRule.AccountCode
	}
	return rules.DefaultAccount
}

func renderDescription(template, source, period, fundOrg string) string {
	if template == "" {
		return fmt.Sprintf("%s charges for %s", source, period)
	}
	return strings.NewReplacer(
		"{source}", source,
		"{period}", period,
		"{fund_org}", fundOrg,
	).Replace(template)
}

// CheckBalance verifies that debit and credit totals are exactly equal.
func CheckBalance(entries []domain.JournalEntry) error {
	var debitTotal, creditTotal decimal.Decimal
	for _, e := range entries {
		switch e.Side {
		case domain.EntryDebit:
			debitTotal = debitTotal.Add(e.Amount)
		case domain.EntryCredit:
			creditTotal = creditTotal.Add(e.Amount)
		}
	}
	if !debitTotal.Equal(creditTotal) {
		return fmt.Errorf("%w: debits %s, credits %s", ErrUnbalanced, debitTotal.String(), creditTotal.String())
	}
	return nil
}
