// Package kbtest provides a small knowledge base shared by package tests.
package kbtest

import (
	"testing"
	"time"

	"github.com/rcliao/askfolio/internal/kb"
	"github.com/rcliao/askfolio/internal/model"
)

// Now is the reference time tests evaluate dates against.
var Now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// YAML is the fixture knowledge base.
const YAML = `version: "1.0"
profile:
  name: Riley Chen
  email: riley@example.com
  linkedin: https://www.linkedin.com/in/rileychen
  github: https://github.com/rileychen
  website: https://riley.example.com
items:
  - id: proj_portfolio
    kind: project
    title: Portfolio Assistant
    summary: A question-answering assistant over my own portfolio that cut answer latency by 40% with candidate-restricted retrieval.
    specifics:
      - Built a two-tier intent router with a deterministic pre-router
      - Served 1,200 users in the first month
      - Reranked results by importance and recency
      - Wrote the evidence-pack assembler
    skills: [go, python, sentence_transformers, openai]
    tags: [ai, rag]
    aliases: [askfolio]
    url: https://github.com/rileychen/askfolio
    dates: {start: "2024-01", end: present}
  - id: proj_router
    kind: project
    title: Query Router
    summary: Machine learning model that routes support tickets to teams.
    specifics:
      - Trained a gradient-boosted classifier on 50k labeled tickets
      - Improved routing accuracy 3x over keyword rules
    skills: [python, machine_learning]
    tags: [nlp]
    dates: {start: "2023-03", end: "2023-09"}
  - id: proj_voyage
    kind: project
    title: Voyage Optimizer
    organization: Veson Nautical
    summary: Route and bunker optimization service for shipping voyages.
    specifics:
      - Solved a mixed-integer program for fuel planning
    skills: [typescript, optimization]
    tags: [maritime]
    dates: {start: "2022-02", end: "2022-11"}
  - id: exp_veson
    kind: experience
    role: Software Engineer
    company: Veson Nautical
    location: Boston, MA
    summary: Built distributed data pipelines for maritime commercial software.
    specifics:
      - Scaled the event pipeline to 10M events per day
      - Reduced infrastructure costs by $200k per year
      - Led migration to Kubernetes
    skills: [typescript, react, aws, distributed_systems, kubernetes]
    dates: {start: "2021-06", end: "2023-01"}
  - id: exp_acme
    kind: experience
    role: Senior Engineer
    company: Acme AI
    summary: Builds machine learning infrastructure for LLM inference and embedding retrieval.
    specifics:
      - Designed a GPU scheduling system for model serving
      - Cut p99 latency by 35%
    skills: [python, machine_learning, pytorch, kubernetes, go]
    dates: {start: "2023-02", end: present}
  - id: cls_ml
    kind: class
    title: Machine Learning
    code: CS 229
    school: Stanford
    term: Fall 2021
    summary: Supervised and unsupervised learning, kernels, neural networks.
    skills: [machine_learning, python]
  - id: post_rag
    kind: writing
    title: Why Retrieval Needs Filters
    published: "2024-05"
    summary: An essay on restricting vector search to a filtered candidate set.
    skills: [sentence_transformers]
    tags: [ai, rag]
    body: |
      Vector similarity is a poor substitute for structure.

      When the user asks for projects, searching every record wastes the budget.
  - id: story_first_job
    kind: story
    title: The First Outage
    summary: How a midnight pager alert taught me to love runbooks.
    dates: {start: "2021-08", end: "2021-08"}
  - id: value_ownership
    kind: value
    name: Ownership
    summary: I follow my work into production and stay for the consequences.
  - id: interest_climbing
    kind: interest
    name: Rock Climbing
    summary: Bouldering three times a week.
  - id: edu_bs
    kind: education
    school: University of Washington
    degree: B.S. Computer Science
    dates: {start: "2017-09", end: "2021-06"}
  - id: bio_intro
    kind: bio
    name: About Riley
    summary: Engineer who builds retrieval and ML systems.
    body: Grew up in Seattle and started programming with game mods.
  - id: go
    kind: skill
    name: Go
    category: language
  - id: python
    kind: skill
    name: Python
    category: language
  - id: sentence_transformers
    kind: skill
    name: Sentence Transformers
    category: ml
  - id: machine_learning
    kind: skill
    name: Machine Learning
    category: ml
rankings:
  - {id: proj_portfolio, kind: project, score: 92}
  - {id: proj_router, kind: project, score: 70}
  - {id: proj_voyage, kind: project, score: 55}
  - {id: exp_veson, kind: experience, score: 80}
  - {id: exp_acme, kind: experience, score: 88}
  - {id: cls_ml, kind: class, score: 40}
  - {id: post_rag, kind: writing, score: 60}
`

// Document parses the fixture.
func Document(t testing.TB) *kb.Document {
	t.Helper()
	doc, err := kb.Parse([]byte(YAML))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

// Items returns the fixture items.
func Items(t testing.TB) []model.Item {
	return Document(t).Items
}

// ByID returns the fixture item with the given id.
func ByID(t testing.TB, id string) model.Item {
	t.Helper()
	for _, it := range Items(t) {
		if it.ItemID() == id {
			return it
		}
	}
	t.Fatalf("no fixture item %q", id)
	return nil
}
