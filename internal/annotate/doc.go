// Package annotate tokenizes and tags subtitle phrases.
//
// An Annotator turns a phrase into Tokens whose Text+Space concatenation
// reproduces the phrase. Tags follow Universal POS conventions so the
// breakpoint selector can reason about conjunctions, pronouns, verbs and
// punctuation without caring which backend produced them.
//
// Two backends exist: "prose" runs in-process and is safe for concurrent use;
// "spacy" drives a long-lived Python worker and serialises requests. Handles
// are opened once per run and shared by every stage. A backend that cannot be
// initialised is a fatal setup error; there is no fallback tokenizer.
package annotate
