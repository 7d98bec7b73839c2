package tokenizer

import (
	"fmt"
	"strings"
	"testing"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `'''Felis''' is a [[genus]] of small and medium-sized [[cat]] species native to
        most of Africa and south of 60° latitude in Europe and Asia.{{sfn|Wozencraft|2005}}
        Genus members are generally smaller than [[Lynx]] species.<ref name="msw3"/>
        See https://www.iucnredlist.org/species/60354712 for the conservation status.
        == Taxonomy ==
        The name ''Felis'' was first used by [[Carl Linnaeus]] in 1758.`,
	"long": strings.Repeat(`The '''domestic cat''' (''Felis catus'') is a small [[carnivore|carnivorous]]
        [[mammal]]. {{Speciesbox |name=Cat |status=DOM}} It is the only domesticated species
        in the family [[Felidae]]. Recent advances in [[archaeology]] and [[genetics]] have
        shown that the domestication of the cat occurred in the [[Near East]] around 7500 BC.
        <ref>{{cite journal |last=Driscoll |year=2007}}</ref> `, 20) + "\n== See also ==\n* [[Cats]]",
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := Tokenize(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokens := Tokenize(text)
			_ = tokens
		}
	})
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 500, 1000, 5000}
	baseWord := "domestic [[cat]] {{lang|la|felis}} species "
	for _, size := range sizes {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				Each(text, func(string) {})
			}
		})
	}
}
