package anilist

const mediaFields = `
      id
      idMal
      title { romaji english native }
      synonyms
      format
      status
      season
      seasonYear
      episodes
      duration
      averageScore
      popularity
      genres
      tags { name rank }`

const searchQuery = `query (
  $page: Int, $perPage: Int, $sort: [MediaSort],
  $search: String, $formatIn: [MediaFormat], $statusIn: [MediaStatus],
  $season: MediaSeason, $seasonYear: Int,
  $startGreater: FuzzyDateInt, $startLesser: FuzzyDateInt,
  $genreIn: [String], $tagIn: [String],
  $episodes: Int, $episodesGreater: Int, $episodesLesser: Int,
  $duration: Int, $durationGreater: Int, $durationLesser: Int,
  $averageScore: Int, $averageScoreGreater: Int, $averageScoreLesser: Int,
  $popularity: Int, $popularityGreater: Int, $popularityLesser: Int
) {
  Page(page: $page, perPage: $perPage) {
    pageInfo { hasNextPage }
    media(
      type: ANIME, sort: $sort,
      search: $search, format_in: $formatIn, status_in: $statusIn,
      season: $season, seasonYear: $seasonYear,
      startDate_greater: $startGreater, startDate_lesser: $startLesser,
      genre_in: $genreIn, tag_in: $tagIn,
      episodes: $episodes, episodes_greater: $episodesGreater, episodes_lesser: $episodesLesser,
      duration: $duration, duration_greater: $durationGreater, duration_lesser: $durationLesser,
      averageScore: $averageScore, averageScore_greater: $averageScoreGreater, averageScore_lesser: $averageScoreLesser,
      popularity: $popularity, popularity_greater: $popularityGreater, popularity_lesser: $popularityLesser
    ) {` + mediaFields + `
    }
  }
}`

const mediaByIDQuery = `query ($ids: [Int], $perPage: Int) {
  Page(page: 1, perPage: $perPage) {
    pageInfo { hasNextPage }
    media(id_in: $ids, type: ANIME) {` + mediaFields + `
    }
  }
}`

const genreQuery = `query { GenreCollection }`

const tagQuery = `query { MediaTagCollection { name isAdult } }`
