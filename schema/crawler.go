package schema

import "regexp"

// CrawlerPatterns lists known automated content agents, matched case-insensitively against the User-Agent.
// Order only matters for readability; the first match wins.
var CrawlerPatterns = compilePatterns(
	// ai assistants and model trainers
	`GPTBot`,
	`ChatGPT-User`,
	`OAI-SearchBot`,
	`ClaudeBot`,
	`Claude-Web`,
	`anthropic-ai`,
	`PerplexityBot`,
	`Perplexity-User`,
	`Google-Extended`,
	`Applebot-Extended`,
	`Bytespider`,
	`CCBot`,
	`cohere-ai`,
	`Diffbot`,
	`FacebookBot`,
	`Meta-ExternalAgent`,
	`YouBot`,
	`Amazonbot`,
	`AI2Bot`,
	`Timpibot`,
	`omgili`,

	// search indexers
	`Googlebot`,
	`Bingbot`,
	`Slurp`,
	`DuckDuckBot`,
	`Baiduspider`,
	`YandexBot`,
	`Sogou`,
	`Exabot`,
	`SeznamBot`,
	`Applebot`,
	`PetalBot`,

	// social previews
	`facebookexternalhit`,
	`Twitterbot`,
	`LinkedInBot`,
	`Slackbot`,
	`Discordbot`,
	`TelegramBot`,
	`WhatsApp`,
	`Pinterestbot`,
	`redditbot`,

	// seo crawlers
	`AhrefsBot`,
	`SemrushBot`,
	`MJ12bot`,
	`DotBot`,
	`rogerbot`,
	`BLEXBot`,
	`DataForSeoBot`,
	`serpstatbot`,

	// generic aggregators and tools
	`\bbot\b`,
	`crawler`,
	`spider`,
	`scraper`,
	`python-requests`,
	`python-urllib`,
	`aiohttp`,
	`Go-http-client`,
	`curl/`,
	`wget/`,
	`Scrapy`,
	`HeadlessChrome`,
	`PhantomJS`,
	`TachiSDK`,
)

func compilePatterns(exprs ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		res = append(res, regexp.MustCompile(`(?i)`+expr))
	}
	return res
}
