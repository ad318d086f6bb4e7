package signature

// Catalog is the static technology signature database. It is loaded once as
// package data and never mutated at runtime. Weights and thresholds are
// calibrated so that a single strong marker (a vendor script host, a
// provider-specific header) lands at High on its own, while weak textual
// hints need corroboration to clear Medium.
var Catalog = []Signature{
	// Frameworks
	{
		ID:       "nextjs",
		Name:     "Next.js",
		Category: CategoryFramework,
		Rules: []Rule{
			{Type: RuleHTML, Pattern: `__NEXT_DATA__`, Weight: 0.7},
			{Type: RuleScriptSrc, Pattern: `/_next/static/`, Weight: 0.6},
			{Type: RuleHeader, Key: "x-powered-by", Pattern: `Next\.js`, Weight: 0.6},
			{Type: RuleScriptSrc, Pattern: `/_next/`, Weight: 0.4},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "nuxt",
		Name:     "Nuxt",
		Category: CategoryFramework,
		Rules: []Rule{
			{Type: RuleHTML, Pattern: `__NUXT__`, Weight: 0.7},
			{Type: RuleHTML, Pattern: `data-n-head`, Weight: 0.5},
			{Type: RuleScriptSrc, Pattern: `/_nuxt/`, Weight: 0.6},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "react",
		Name:     "React",
		Category: CategoryFramework,
		Rules: []Rule{
			{Type: RuleHTML, Pattern: `data-reactroot`, Weight: 0.6},
			{Type: RuleHTML, Pattern: `__REACT_DEVTOOLS_GLOBAL_HOOK__`, Weight: 0.5},
			{Type: RuleScriptSrc, Pattern: `react\.production\.min\.js`, Weight: 0.7},
			{Type: RuleScriptSrc, Pattern: `react-dom`, Weight: 0.5},
			{Type: RuleHTML, Pattern: `_reactListening`, Weight: 0.4},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "vue",
		Name:     "Vue.js",
		Category: CategoryFramework,
		Rules: []Rule{
			{Type: RuleHTML, Pattern: `data-v-`, Weight: 0.6},
			{Type: RuleScriptSrc, Pattern: `vue\.js`, Weight: 0.7},
			{Type: RuleScriptSrc, Pattern: `vue\.min\.js`, Weight: 0.7},
			{Type: RuleHTML, Pattern: `__VUE__`, Weight: 0.5},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "angular",
		Name:     "Angular",
		Category: CategoryFramework,
		Rules: []Rule{
			{Type: RuleHTML, Pattern: `ng-version`, Weight: 0.7},
			{Type: RuleScriptSrc, Pattern: `angular\.js`, Weight: 0.6},
			{Type: RuleHTML, Pattern: `ng-app`, Weight: 0.5},
			{Type: RuleScriptSrc, Pattern: `main\.[a-f0-9]+\.js`, Weight: 0.3},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "svelte",
		Name:     "Svelte",
		Category: CategoryFramework,
		Rules: []Rule{
			{Type: RuleHTML, Pattern: `svelte`, Weight: 0.5},
			{Type: RuleScriptSrc, Pattern: `svelte`, Weight: 0.6},
			{Type: RuleHTML, Pattern: `__svelte`, Weight: 0.7},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "remix",
		Name:     "Remix",
		Category: CategoryFramework,
		Rules: []Rule{
			{Type: RuleHTML, Pattern: `__remixContext`, Weight: 0.8},
			{Type: RuleScriptSrc, Pattern: `/build/`, Weight: 0.3},
			{Type: RuleHTML, Pattern: `remix`, Weight: 0.4},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "astro",
		Name:     "Astro",
		Category: CategoryFramework,
		Rules: []Rule{
			{Type: RuleHTML, Pattern: `astro-island`, Weight: 0.8},
			{Type: RuleHTML, Pattern: `astro-slot`, Weight: 0.7},
			{Type: RuleScriptSrc, Pattern: `astro`, Weight: 0.5},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},

	// Hosting / CDN
	{
		ID:       "vercel",
		Name:     "Vercel",
		Category: CategoryHosting,
		Rules: []Rule{
			{Type: RuleHeader, Key: "x-vercel-id", Pattern: `.*`, Weight: 0.9},
			{Type: RuleHeader, Key: "server", Pattern: `Vercel`, Weight: 0.8},
			{Type: RuleDNS, Pattern: `vercel-dns\.com`, Weight: 0.7},
			{Type: RuleScriptSrc, Pattern: `/_vercel/insights/`, Weight: 0.6},
			{Type: RuleHeader, Key: "x-vercel-cache", Pattern: `.*`, Weight: 0.5},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "netlify",
		Name:     "Netlify",
		Category: CategoryHosting,
		Rules: []Rule{
			{Type: RuleHeader, Key: "server", Pattern: `Netlify`, Weight: 0.9},
			{Type: RuleHeader, Key: "x-nf-request-id", Pattern: `.*`, Weight: 0.8},
			{Type: RuleDNS, Pattern: `netlify\.app`, Weight: 0.7},
			{Type: RuleHeader, Key: "x-nf-", Pattern: `.*`, Weight: 0.5},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "cloudflare",
		Name:     "Cloudflare",
		Category: CategoryCDN,
		Rules: []Rule{
			{Type: RuleHeader, Key: "cf-ray", Pattern: `.*`, Weight: 0.9},
			{Type: RuleHeader, Key: "server", Pattern: `cloudflare`, Weight: 0.8},
			{Type: RuleHeader, Key: "cf-cache-status", Pattern: `.*`, Weight: 0.6},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "aws",
		Name:     "AWS",
		Category: CategoryHosting,
		Rules: []Rule{
			{Type: RuleHeader, Key: "x-amz-", Pattern: `.*`, Weight: 0.7},
			{Type: RuleHeader, Key: "server", Pattern: `AmazonS3`, Weight: 0.8},
			{Type: RuleDNS, Pattern: `amazonaws\.com`, Weight: 0.7},
			{Type: RuleDNS, Pattern: `cloudfront\.net`, Weight: 0.6},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "heroku",
		Name:     "Heroku",
		Category: CategoryHosting,
		Rules: []Rule{
			{Type: RuleHeader, Key: "via", Pattern: `heroku`, Weight: 0.8},
			{Type: RuleDNS, Pattern: `herokuapp\.com`, Weight: 0.9},
			{Type: RuleHeader, Key: "server", Pattern: `heroku`, Weight: 0.7},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "railway",
		Name:     "Railway",
		Category: CategoryHosting,
		Rules: []Rule{
			{Type: RuleDNS, Pattern: `railway\.app`, Weight: 0.9},
			{Type: RuleHeader, Key: "server", Pattern: `railway`, Weight: 0.7},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "render",
		Name:     "Render",
		Category: CategoryHosting,
		Rules: []Rule{
			{Type: RuleDNS, Pattern: `onrender\.com`, Weight: 0.9},
			{Type: RuleHeader, Key: "server", Pattern: `render`, Weight: 0.7},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "replit",
		Name:     "Replit",
		Category: CategoryHosting,
		Rules: []Rule{
			{Type: RuleDNS, Pattern: `replit\.dev`, Weight: 0.9},
			{Type: RuleDNS, Pattern: `repl\.co`, Weight: 0.9},
			{Type: RuleHeader, Key: "x-replit-", Pattern: `.*`, Weight: 0.7},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},

	// Payments
	{
		ID:       "stripe",
		Name:     "Stripe",
		Category: CategoryPayments,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `js\.stripe\.com`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `checkout\.stripe\.com`, Weight: 0.8},
			{Type: RuleScriptSrc, Pattern: `stripe\.com/v3`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `stripe-js`, Weight: 0.6},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "paypal",
		Name:     "PayPal",
		Category: CategoryPayments,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `paypal\.com/sdk`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `paypal`, Weight: 0.4},
			{Type: RuleScriptSrc, Pattern: `paypalobjects\.com`, Weight: 0.7},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "paddle",
		Name:     "Paddle",
		Category: CategoryPayments,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `paddle\.com`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `paddle`, Weight: 0.4},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "lemon_squeezy",
		Name:     "Lemon Squeezy",
		Category: CategoryPayments,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `lemonsqueezy\.com`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `lemonsqueezy`, Weight: 0.5},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},

	// Auth
	{
		ID:       "clerk",
		Name:     "Clerk",
		Category: CategoryAuth,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `clerk\.com`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `__clerk`, Weight: 0.7},
			{Type: RuleScriptSrc, Pattern: `@clerk/clerk-js`, Weight: 0.8},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "auth0",
		Name:     "Auth0",
		Category: CategoryAuth,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `cdn\.auth0\.com`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `auth0`, Weight: 0.4},
			{Type: RuleScriptSrc, Pattern: `auth0-js`, Weight: 0.7},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "supabase_auth",
		Name:     "Supabase Auth",
		Category: CategoryAuth,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `supabase`, Weight: 0.6},
			{Type: RuleHTML, Pattern: `supabase\.co/auth`, Weight: 0.8},
			{Type: RuleScriptSrc, Pattern: `@supabase/supabase-js`, Weight: 0.7},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "firebase_auth",
		Name:     "Firebase Auth",
		Category: CategoryAuth,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `firebase.*auth`, Weight: 0.8},
			{Type: RuleHTML, Pattern: `firebaseauth`, Weight: 0.6},
			{Type: RuleScriptSrc, Pattern: `firebaseapp\.com`, Weight: 0.5},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "okta",
		Name:     "Okta",
		Category: CategoryAuth,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `okta\.com`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `okta`, Weight: 0.4},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "nextauth",
		Name:     "NextAuth.js",
		Category: CategoryAuth,
		Rules: []Rule{
			{Type: RuleHTML, Pattern: `next-auth`, Weight: 0.7},
			{Type: RuleCookie, Pattern: `next-auth\.session-token`, Weight: 0.8},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},

	// Analytics
	{
		ID:       "google_analytics",
		Name:     "Google Analytics (GA4)",
		Category: CategoryAnalytics,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `googletagmanager\.com/gtag`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `gtag\('config'`, Weight: 0.7},
			{Type: RuleScriptSrc, Pattern: `google-analytics\.com`, Weight: 0.8},
			{Type: RuleHTML, Pattern: `G-[A-Z0-9]+`, Weight: 0.5},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "posthog",
		Name:     "PostHog",
		Category: CategoryAnalytics,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `posthog\.com`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `posthog`, Weight: 0.5},
			{Type: RuleScriptSrc, Pattern: `array\.js`, Weight: 0.6},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "mixpanel",
		Name:     "Mixpanel",
		Category: CategoryAnalytics,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `mixpanel\.com`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `mixpanel`, Weight: 0.5},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "segment",
		Name:     "Segment",
		Category: CategoryAnalytics,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `segment\.com`, Weight: 0.9},
			{Type: RuleScriptSrc, Pattern: `cdn\.segment\.io`, Weight: 0.8},
			{Type: RuleHTML, Pattern: `analytics\.js`, Weight: 0.4},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "amplitude",
		Name:     "Amplitude",
		Category: CategoryAnalytics,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `amplitude\.com`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `amplitude`, Weight: 0.4},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "heap",
		Name:     "Heap",
		Category: CategoryAnalytics,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `heap\.io`, Weight: 0.9},
			{Type: RuleScriptSrc, Pattern: `heapanalytics\.com`, Weight: 0.9},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "plausible",
		Name:     "Plausible",
		Category: CategoryAnalytics,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `plausible\.io`, Weight: 0.9},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "hotjar",
		Name:     "Hotjar",
		Category: CategoryAnalytics,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `hotjar\.com`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `hjSiteSettings`, Weight: 0.7},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},

	// Support
	{
		ID:       "intercom",
		Name:     "Intercom",
		Category: CategorySupport,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `widget\.intercom\.io`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `Intercom`, Weight: 0.5},
			{Type: RuleScriptSrc, Pattern: `intercom`, Weight: 0.6},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "zendesk",
		Name:     "Zendesk",
		Category: CategorySupport,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `zdassets\.com`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `zendesk`, Weight: 0.5},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "crisp",
		Name:     "Crisp",
		Category: CategorySupport,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `crisp\.chat`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `crisp`, Weight: 0.4},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "freshdesk",
		Name:     "Freshdesk",
		Category: CategorySupport,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `freshdesk\.com`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `freshdesk`, Weight: 0.4},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "drift",
		Name:     "Drift",
		Category: CategorySupport,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `drift\.com`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `drift`, Weight: 0.4},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "hubspot",
		Name:     "HubSpot",
		Category: CategorySupport,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `hubspot\.com`, Weight: 0.9},
			{Type: RuleScriptSrc, Pattern: `hs-scripts\.com`, Weight: 0.8},
			{Type: RuleHTML, Pattern: `hubspot`, Weight: 0.4},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
}
