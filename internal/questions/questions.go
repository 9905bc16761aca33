// Package questions defines the fixed ESG research question set: one
// basic-info identity question followed by six scored disclosure checks.
package questions

import (
	"fmt"
	"strings"

	"github.com/supplytrace/esg-cli/internal/model"
)

// Schema identifies the result shape a question expects from the agent.
type Schema string

const (
	SchemaSupplierInfo Schema = "supplier_info" // model.AgentSupplierInfo
	SchemaDataSummary  Schema = "data_summary"  // model.DataSummary
)

// Question is one research question specification.
type Question struct {
	Key    string `yaml:"key"`
	Label  string `yaml:"label"`
	Prompt string `yaml:"prompt"`
	Schema Schema `yaml:"-"`
	Scored bool   `yaml:"-"`
}

// KeyBasicInfo is the identity-resolution question key. Its failure is
// fatal to an enrichment run; scored question failures are not.
const KeyBasicInfo = "basic_info"

const promptBasicInfo = `Use the web to find a URL to the company's website and come up with your best description of what this company does.`

const promptScope1 = `Please find any data on THEIR OWN scope 1 emissions calculations.
Scope 1 emissions are direct emissions from sources owned or controlled by a company.
These include things like: on-site energy, fleet vehicles, process emissions, or accidental emissions.
ONLY INCLUDE EXPLICIT MENTIONS OF "SCOPE 1" DATA.`

const promptScope2 = `Please find any data on THEIR OWN scope 2 emissions calculations.
Scope 2 emissions are indirect greenhouse gas (GHG) emissions that result from the generation of energy that an organization purchases and uses.
These include things like the purchase of electricity from: steam, heat, cooling, etc.
ONLY INCLUDE EXPLICIT MENTIONS OF "SCOPE 2" DATA.`

const promptScope3 = `Please find any data on THEIR OWN scope 3 emissions calculations.
Scope 3 emissions are greenhouse gas (GHG) emissions that are a result of activities that a company indirectly affects as part of its value chain, but that are not owned or controlled by the company.
These include things like: supply chain emissions, use of sold products, waste disposal, employee travel, etc.
ONLY INCLUDE EXPLICIT MENTIONS OF "SCOPE 3" DATA.`

const promptEcovadis = `Please find if this company has a publicly available EcoVadis score.`

const promptISO14001 = `Please find if this company has an ISO 14001 certification.`

const promptProductLCA = `Please find if this company has any products undergoing a Life Cycle Assessment, or LCA.`

// Set returns the fixed, ordered question set. Order matters for display
// only; no question depends on another's output.
func Set() []Question {
	return []Question{
		{Key: KeyBasicInfo, Label: "Basic Information", Prompt: promptBasicInfo, Schema: SchemaSupplierInfo},
		{Key: "scope_1", Label: "Scope 1 Emissions", Prompt: promptScope1, Schema: SchemaDataSummary, Scored: true},
		{Key: "scope_2", Label: "Scope 2 Emissions", Prompt: promptScope2, Schema: SchemaDataSummary, Scored: true},
		{Key: "scope_3", Label: "Scope 3 Emissions", Prompt: promptScope3, Schema: SchemaDataSummary, Scored: true},
		{Key: "ecovadis", Label: "EcoVadis Score", Prompt: promptEcovadis, Schema: SchemaDataSummary, Scored: true},
		{Key: "iso_14001", Label: "ISO 14001 Certification", Prompt: promptISO14001, Schema: SchemaDataSummary, Scored: true},
		{Key: "product_lca", Label: "Product LCAs", Prompt: promptProductLCA, Schema: SchemaDataSummary, Scored: true},
	}
}

// Render interpolates the company's known fields into the question's task
// prompt. Empty optional fields are omitted from the prefix.
func (q Question) Render(name string, known model.KnownFields) string {
	var b strings.Builder
	b.WriteString("Given the following info about a company:\n")
	fmt.Fprintf(&b, "    Name - %s\n", name)
	if known.Website != "" {
		fmt.Fprintf(&b, "    Website - %s\n", known.Website)
	}
	if known.Description != "" {
		fmt.Fprintf(&b, "    Description - %s\n", known.Description)
	}
	if known.Notes != "" {
		fmt.Fprintf(&b, "    Notes - %s\n", known.Notes)
	}
	b.WriteString("\n")
	b.WriteString(q.Prompt)
	return b.String()
}
