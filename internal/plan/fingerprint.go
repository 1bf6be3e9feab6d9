package plan

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// DomainPlan prefixes plan fingerprints. The version suffix allows a
// future change of the canonical form.
const DomainPlan = "seqpref/plan/v1"

// namespace for name-based plan IDs.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(DomainPlan))

type canonicalNode struct {
	Name      string   `json:"name"`
	Body      string   `json:"body"`
	DependsOn []string `json:"depends_on"`
}

type canonicalPlan struct {
	Final  string          `json:"final"`
	Inputs []string        `json:"inputs"`
	Nodes  []canonicalNode `json:"nodes"`
}

// Canonical serializes the plan for hashing: NFC-normalized strings,
// fixed field order, no HTML escaping.
func (p *Plan) Canonical() ([]byte, error) {
	c := canonicalPlan{
		Final:  norm.NFC.String(p.Final),
		Inputs: nfcAll(p.Inputs),
		Nodes:  make([]canonicalNode, len(p.Nodes)),
	}
	for i, n := range p.Nodes {
		c.Nodes[i] = canonicalNode{
			Name:      norm.NFC.String(n.Name),
			Body:      norm.NFC.String(n.Body),
			DependsOn: nfcAll(n.DependsOn),
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("canonical plan: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Fingerprint is SHA256(DomainPlan + 0x00 + canonical plan), hex encoded.
func (p *Plan) Fingerprint() (string, error) {
	data, err := p.Canonical()
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(DomainPlan))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ID is a name-based UUID derived from the fingerprint.
func (p *Plan) ID() (uuid.UUID, error) {
	fp, err := p.Fingerprint()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.NewSHA1(namespace, []byte(fp)), nil
}

func nfcAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = norm.NFC.String(s)
	}
	return out
}
