// Package flagging decides whether an incoming charge needs human review
// before it may be billed. Checks run in a fixed precedence order and the
// first hit wins.
package flagging

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
)

// Pattern is one compiled review pattern with its original expression kept
// for reporting.
type Pattern struct {
	Expr string
	Re   *regexp.Regexp
}

// Rules is the compiled review configuration evaluated against each charge.
type Rules struct {
	// FlagPatterns match against resource and service names; a hit flags
	// the charge as pattern_match.
	FlagPatterns []Pattern
	// FundOrgPatterns validate the fund/org tag; a non-empty tag matching
	// none of them flags the charge as invalid_fund_org. An empty list
	// accepts any non-empty tag.
	FundOrgPatterns []Pattern
}

// Input is the subset of a charge the rules look at.
type Input struct {
	ExpectedPeriod   string // caller-supplied target period, may be empty
	PeriodName       string // period derived from the row itself
	StakeholderEmail string
	ProjectID        string
	FundOrg          string
	ResourceName     string
	ServiceName      string
}

// Result is a flagging verdict. Reason is empty when the charge is clean.
type Result struct {
	Flagged bool
	Reason  domain.FlagReason
	Detail  string
}

// Evaluate runs the checks in precedence order: period mismatch, missing
// attribution fields, fund/org validity, then name patterns.
func Evaluate(in Input, rules Rules) Result {
	if in.ExpectedPeriod != "" && in.PeriodName != "" && in.PeriodName != in.ExpectedPeriod {
		return Result{
			Flagged: true,
			Reason:  domain.FlagPeriodMismatch,
			Detail:  fmt.Sprintf("charge belongs to %s, import targets %s", in.PeriodName, in.ExpectedPeriod),
		}
	}

	if strings.TrimSpace(in.StakeholderEmail) == "" {
		return Result{Flagged: true, Reason: domain.FlagMissingPIEmail}
	}
	if strings.TrimSpace(in.ProjectID) == "" {
		return Result{Flagged: true, Reason: domain.FlagMissingProjectID}
	}

	fundOrg := strings.TrimSpace(in.FundOrg)
	if fundOrg == "" {
		return Result{Flagged: true, Reason: domain.FlagMissingFundOrg}
	}
	if len(rules.FundOrgPatterns) > 0 && !anyMatch(rules.FundOrgPatterns, fundOrg) {
		return Result{
			Flagged: true,
			Reason:  domain.FlagInvalidFundOrg,
			Detail:  fmt.Sprintf("fund/org %q matches no accepted pattern", fundOrg),
		}
	}

	for _, p := range rules.FlagPatterns {
		if p.Re.MatchString(in.ResourceName) || p.Re.MatchString(in.ServiceName) {
			return Result{Flagged: true, Reason: domain.FlagPatternMatch, Detail: p.Expr}
		}
	}

	return Result{}
}

func anyMatch(patterns []Pattern, s string) bool {
	for _, p := range patterns {
		if p.Re.MatchString(s) {
			return true
		}
	}
	return false
}

// Compile builds case-insensitive patterns from raw expressions. Invalid
// expressions are skipped and returned so callers can surface them as
// warnings instead of failing startup.
func Compile(exprs []string) ([]Pattern, []string) {
	var patterns []Pattern
	var invalid []string
	for _, expr := range exprs {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			invalid = append(invalid, expr)
			continue
		}
		patterns = append(patterns, Pattern{Expr: expr, Re: re})
	}
	return patterns, invalid
}
