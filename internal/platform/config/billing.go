package config

import (
	"fmt"
	"regexp"

	"github.com/spf13/viper"

	"github.com/rcdops/chargeback_backend/internal/utils/accounting"
	"github.com/rcdops/chargeback_backend/internal/utils/flagging"
	"github.com/rcdops/chargeback_backend/internal/utils/focus"
)

// BillingConfig is the operator-supplied billing policy, loaded from a YAML
// file. It drives tag mapping, review flagging and journal generation.
type BillingConfig struct {
	TagMapping focus.TagMapping        `mapstructure:"tag_mapping"`
	Review     ReviewConfig            `mapstructure:"review"`
	Journal    JournalConfig           `mapstructure:"journal"`
	Sources    map[string]SourceConfig `mapstructure:"sources"`
}

// ReviewConfig configures the flagging engine.
type ReviewConfig struct {
	FlagPatterns    []string `mapstructure:"flag_patterns"`
	FundOrgPatterns []string `mapstructure:"fund_org_patterns"`
}

// JournalConfig configures general-ledger output.
type JournalConfig struct {
	FundOrgRegex      string `mapstructure:"fund_org_regex"`
	DefaultAccount    string `mapstructure:"default_account"`
	DebitDescription  string `mapstructure:"debit_description"`
	CreditDescription string `mapstructure:"credit_description"`
}

// SourceConfig is the per-source accounting configuration. The account
// code is shared by the source's debit and credit sides.
type SourceConfig struct {
	DisplayName   string `mapstructure:"display_name"`
	AccountCode   string `mapstructure:"account_code"`
	CreditFundOrg string `mapstructure:"credit_fund_org"`
}

// BillingRuntime is the compiled, immutable form of BillingConfig that
// services consume. Warnings lists configuration entries that were skipped
// (e.g. invalid regular expressions) so startup can log them without
// failing.
type BillingRuntime struct {
	TagMapping focus.TagMapping
	Flagging   flagging.Rules
	Accounting accounting.Rules
	Sources    map[string]SourceConfig
	Warnings   []string
}

// LoadBillingConfig reads and compiles the billing policy file at path.
func LoadBillingConfig(path string) (*BillingRuntime, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read billing config %s: %w", path, err)
	}

	var cfg BillingConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse billing config %s: %w", path, err)
	}
	return cfg.Compile()
}

// Compile validates the raw configuration and compiles its regular
// expressions. Invalid patterns are dropped and reported as warnings
// rather than returned as errors.
func (c BillingConfig) Compile() (*BillingRuntime, error) {
	rt := &BillingRuntime{
		TagMapping: c.TagMapping,
		Sources:    c.Sources,
	}
	if rt.Sources == nil {
		rt.Sources = map[string]SourceConfig{}
	}

	flagPatterns, invalid := flagging.Compile(c.Review.FlagPatterns)
	for _, expr := range invalid {
		rt.Warnings = append(rt.Warnings, fmt.Sprintf("skipping invalid flag pattern %q", expr))
	}
	fundOrgPatterns, invalid := flagging.Compile(c.Review.FundOrgPatterns)
	for _, expr := range invalid {
		rt.Warnings = append(rt.Warnings, fmt.Sprintf("skipping invalid fund/org pattern %q", expr))
	}
	rt.Flagging = flagging.Rules{
		FlagPatterns:    flagPatterns,
		FundOrgPatterns: fundOrgPatterns,
	}

	var fundOrgRe *regexp.Regexp
	if c.Journal.FundOrgRegex != "" {
		re, err := regexp.Compile(c.Journal.FundOrgRegex)
		if err != nil {
			rt.Warnings = append(rt.Warnings, fmt.Sprintf("skipping invalid journal fund_org_regex %q", c.Journal.FundOrgRegex))
		} else {
			fundOrgRe = re
		}
	}

	sourceRules := make(map[string]accounting.SourceRule, len(c.Sources))
	for name, src := range c.Sources {
		sourceRules[name] = accounting.SourceRule{
			AccountCode:   src.AccountCode,
			CreditFundOrg: src.CreditFundOrg,
		}
	}
	rt.Accounting = accounting.Rules{
		FundOrgPattern:    fundOrgRe,
		DefaultAccount:    c.Journal.DefaultAccount,
		DebitDescription:  c.Journal.DebitDescription,
		CreditDescription: c.Journal.CreditDescription,
		Sources:           sourceRules,
	}

	return rt, nil
}
