package fetcher

import (
	"time"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
)

const hackerEarthLogo = "https://d2908q01vomqb2.cloudfront.net/cb4e5208b4cd87268b208e49452ed6e89a68e0b8/2023/03/22/HackerEarth-logo-1.png"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedTags() []string {
	return []string{"hackathon", models.FallbackTag}
}

// HackerEarthSeed returns the records served when HackerEarth has never been reachable.
func HackerEarthSeed() []models.Item {
	return []models.Item{
		{
			ID:          "he-code-horizon-2024",
			Source:      models.SourceHackerEarth,
			Title:       "Code Horizon 2024",
			Description: "The ultimate competitive programming and algorithmic challenge for tech enthusiasts.",
			StartDate:   day(2024, time.December, 10),
			EndDate:     day(2024, time.December, 12),
			Location:    "Bangalore, India",
			Mode:        models.ModeHybrid,
			URL:         "https://www.hackerearth.com/challenges/hackathon/code-horizon-2024",
			ImageURL:    hackerEarthLogo,
			Tags:        seedTags(),
		},
		{
			ID:          "he-fintech-innovate-24",
			Source:      models.SourceHackerEarth,
			Title:       "FinTech Innovate 2024",
			Description: "Revolutionize the financial world through technology. Build solutions for payments, blockchain, banking and more.",
			StartDate:   day(2024, time.November, 25),
			EndDate:     day(2024, time.November, 27),
			Location:    "Mumbai, India",
			Mode:        models.ModeInPerson,
			URL:         "https://www.hackerearth.com/challenges/hackathon/fintech-innovate-2024",
			ImageURL:    hackerEarthLogo,
			Tags:        seedTags(),
		},
		{
			ID:          "he-ai-summit-hack-2024",
			Source:      models.SourceHackerEarth,
			Title:       "AI Summit Hackathon 2024",
			Description: "Build the next generation AI applications. Focus on machine learning, NLP, computer vision, and generative AI.",
			StartDate:   day(2024, time.October, 15),
			EndDate:     day(2024, time.October, 18),
			Location:    "Delhi, India",
			Mode:        models.ModeOnline,
			URL:         "https://www.hackerearth.com/challenges/hackathon/ai-summit-hackathon-2024",
			ImageURL:    hackerEarthLogo,
			Tags:        seedTags(),
		},
	}
}

// DevfolioSeed returns the records served when Devfolio has never been reachable.
func DevfolioSeed() []models.Item {
	return []models.Item{
		{
			ID:          "df-ethonline",
			Source:      models.SourceDevfolio,
			Title:       "ETHIndia 2024",
			Description: "The World's Biggest Ethereum Hackathon coming to Bangalore",
			StartDate:   day(2024, time.November, 15),
			EndDate:     day(2024, time.November, 17),
			Location:    "Bangalore, India",
			Mode:        models.ModeHybrid,
			URL:         "https://devfolio.co/hackathons/ethindia-2024",
			Tags:        seedTags(),
			Extras: &models.Extras{
				Prize:    "Prizes worth $550",
				Sponsors: []string{"ETHIndia", "Polygon", "Aptos"},
				TeamSize: &models.TeamSize{Min: 1, Max: 4},
			},
		},
		{
			ID:          "df-polygon",
			Source:      models.SourceDevfolio,
			Title:       "Polygon Fellowship 2024",
			Description: "Build the next generation of decentralized applications on Polygon.",
			StartDate:   day(2024, time.December, 5),
			EndDate:     day(2024, time.December, 7),
			Location:    "Mumbai, India",
			Mode:        models.ModeInPerson,
			URL:         "https://devfolio.co/hackathons/polygon-fellowship-2024",
			Tags:        seedTags(),
		},
		{
			ID:          "df-solana",
			Source:      models.SourceDevfolio,
			Title:       "Solana India Hackathon",
			Description: "Build on the fastest blockchain and earn prizes worth $100,000",
			StartDate:   day(2024, time.December, 20),
			EndDate:     day(2024, time.December, 22),
			Location:    "Delhi, India",
			Mode:        models.ModeHybrid,
			URL:         "https://devfolio.co/hackathons/solana-india-hackathon",
			Tags:        seedTags(),
		},
	}
}
