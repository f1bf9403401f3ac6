package consensus

// Gap marks a reference position with no aligned character.
const Gap rune = 0

// AlignToReference runs a full Levenshtein alignment with back-pointers
// and returns, for each reference position, the character of text
// aligned to it, or Gap when that position was deleted.
func AlignToReference(reference, text string) []rune {
	ref := []rune(reference)
	txt := []rune(text)
	m, n := len(ref), len(txt)
	if m == 0 {
		return nil
	}
	aligned := make([]rune, m)
	for i := range aligned {
		aligned[i] = Gap
	}
	if n == 0 {
		return aligned
	}

	const (
		opSub    = 0
		opDelete = 1 // delete from reference
		opInsert = 2 // insert in reference (skip char in text)
	)

	dp := make([][]int, m+1)
	back := make([][]uint8, m+1)
	for i := 0; i <= m; i++ {
		dp[i] = make([]int, n+1)
		back[i] = make([]uint8, n+1)
	}
	for i := 1; i <= m; i++ {
		dp[i][0] = i
		back[i][0] = opDelete
	}
	for j := 1; j <= n; j++ {
		dp[0][j] = j
		back[0][j] = opInsert
	}

	for i := 1; i <= m; i++ {
		rch := ref[i-1]
		for j := 1; j <= n; j++ {
			subCost := 1
			if rch == txt[j-1] {
				subCost = 0
			}
			best := dp[i-1][j-1] + subCost
			op := uint8(opSub)
			if dp[i-1][j]+1 < best {
				best = dp[i-1][j] + 1
				op = opDelete
			}
			if dp[i][j-1]+1 < best {
				best = dp[i][j-1] + 1
				op = opInsert
			}
			dp[i][j] = best
			back[i][j] = op
		}
	}

	i, j := m, n
	for i > 0 || j > 0 {
		if i == 0 {
			j--
			continue
		}
		if j == 0 {
			i--
			continue
		}
		switch back[i][j] {
		case opSub:
			aligned[i-1] = txt[j-1]
			i--
			j--
		case opDelete:
			i--
		default:
			j--
		}
	}
	return aligned
}
