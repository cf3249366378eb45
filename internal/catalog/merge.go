package catalog

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/silolabs/sift/internal/types"
)

// BranchThreshold is the confidence below which a returned issue reference
// is treated as a plausible-but-uncertain match: the ticket gets a branch of
// the referenced issue instead of merging into it directly.
const BranchThreshold = 0.9

// MergeAction describes what a merge did to the catalog.
type MergeAction string

const (
	// ActionCreatedRoot: no identifier returned, new root issue allocated.
	ActionCreatedRoot MergeAction = "created_root"
	// ActionCreatedBranch: low-confidence match, branch of the referenced
	// parent created.
	ActionCreatedBranch MergeAction = "created_branch"
	// ActionUpdated: high-confidence match, existing issue overwritten and
	// ticket linked.
	ActionUpdated MergeAction = "updated"
	// ActionReprocessed: ticket was already linked somewhere; that issue
	// was updated in place without creating a duplicate entry.
	ActionReprocessed MergeAction = "reprocessed"
	// ActionCreatedFromRef: high-confidence reference to an identifier not
	// in the catalog; a new entry was created under that identifier.
	ActionCreatedFromRef MergeAction = "created_from_ref"
)

// MergeResult reports the action taken and the issue the ticket ended up in.
type MergeResult struct {
	Action  MergeAction
	IssueID string
}

// Merge folds one classification result for one ticket into the catalog.
// The decision procedure, in order:
//
//  1. No identifier returned: if the ticket is already linked to an issue,
//     update that issue's non-empty fields in place (reprocessing guard);
//     otherwise allocate the next root identifier and append.
//  2. Identifier returned below the branch threshold: same reprocessing
//     guard; otherwise create a branch of the referenced parent, inserted
//     immediately after the parent's family in catalog order.
//  3. Identifier returned at or above the threshold: overwrite the
//     referenced issue (except its ticket list) and link the ticket. If
//     the identifier does not exist, create a new entry under it verbatim.
//
// Re-merging the identical (classification, ticket) pair against an
// unchanged catalog leaves its observable content unchanged.
func (c *Catalog) Merge(cl *types.Classification, ticketID int) MergeResult {
	if cl.IssueID == "" {
		if issue := c.findByTicket(ticketID); issue != nil {
			applyNonEmpty(issue, cl)
			slog.Debug("ticket already linked, updated in place", "ticket", ticketID, "issue", issue.IssueID)
			return MergeResult{Action: ActionReprocessed, IssueID: issue.IssueID}
		}
		id := c.nextRootID()
		c.issues = append(c.issues, newIssue(id, cl, ticketID))
		return MergeResult{Action: ActionCreatedRoot, IssueID: id}
	}

	if cl.Confidence < BranchThreshold {
		if issue := c.findByTicket(ticketID); issue != nil {
			applyNonEmpty(issue, cl)
			slog.Debug("ticket already linked, updated in place", "ticket", ticketID, "issue", issue.IssueID)
			return MergeResult{Action: ActionReprocessed, IssueID: issue.IssueID}
		}
		parent := cl.IssueID
		id := fmt.Sprintf("%s-%d", parent, c.nextBranchNumber(parent))
		pos := c.familyEnd(parent)
		if pos < 0 {
			// Referenced parent is not in the catalog; the branch still
			// gets its derived identifier but lands at the end.
			c.issues = append(c.issues, newIssue(id, cl, ticketID))
		} else {
			c.insertAt(pos+1, newIssue(id, cl, ticketID))
		}
		return MergeResult{Action: ActionCreatedBranch, IssueID: id}
	}

	if issue := c.findByID(cl.IssueID); issue != nil {
		overwrite(issue, cl)
		issue.LinkTicket(ticketID)
		return MergeResult{Action: ActionUpdated, IssueID: issue.IssueID}
	}

	// The classifier referenced an identifier that does not exist (stale or
	// hallucinated). Keep the supplied identifier verbatim rather than
	// allocating a fresh one, so later high-confidence matches resolve.
	slog.Warn("classifier referenced unknown issue, creating entry under it", "issue", cl.IssueID, "ticket", ticketID)
	c.issues = append(c.issues, newIssue(cl.IssueID, cl, ticketID))
	return MergeResult{Action: ActionCreatedFromRef, IssueID: cl.IssueID}
}

// nextRootID allocates the next root identifier by scanning the list: one
// greater than the maximum existing root number. Branch identifiers never
// match the strict root form, so they are excluded from the scan. The list
// is the single source of truth; no counter state exists to drift.
func (c *Catalog) nextRootID() string {
	maxRoot := 0
	for i := range c.issues {
		if n, ok := types.RootIDNumber(c.issues[i].IssueID); ok && n > maxRoot {
			maxRoot = n
		}
	}
	return types.FormatRootID(maxRoot + 1)
}

// nextBranchNumber computes the next 1-based branch counter for parent.
// Only the first path segment after the parent prefix counts, so branches
// of branches number independently at each level.
func (c *Catalog) nextBranchNumber(parent string) int {
	prefix := parent + "-"
	maxBranch := 0
	for i := range c.issues {
		id := c.issues[i].IssueID
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		segment := strings.TrimPrefix(id, prefix)
		if j := strings.IndexByte(segment, '-'); j >= 0 {
			segment = segment[:j]
		}
		if n, err := strconv.Atoi(segment); err == nil && n > maxBranch {
			maxBranch = n
		}
	}
	return maxBranch + 1
}

// familyEnd returns the index of the last entry that is parent itself or
// one of its branches, or -1 if the parent has no presence in the catalog.
// New branches insert right after this index to keep families contiguous
// in the persisted order.
func (c *Catalog) familyEnd(parent string) int {
	last := -1
	for i := range c.issues {
		id := c.issues[i].IssueID
		if id == parent || types.IsBranchOf(id, parent) {
			last = i
		}
	}
	return last
}

// newIssue builds a catalog entry from a classification with the given
// identifier and a single linked ticket.
func newIssue(id string, cl *types.Classification, ticketID int) types.Issue {
	return types.Issue{
		IssueID:          id,
		Category:         cl.Category,
		ShortDescription: cl.ShortDescription,
		Keywords:         cl.Keywords,
		RootCause:        cl.RootCause,
		ResolutionSteps:  cl.ResolutionSteps,
		Confidence:       cl.Confidence,
		Notes:            cl.Notes,
		Tickets:          []int{ticketID},
	}
}

// overwrite replaces every field of the issue except its identifier and
// ticket list with the classification's values.
func overwrite(issue *types.Issue, cl *types.Classification) {
	issue.Category = cl.Category
	issue.ShortDescription = cl.ShortDescription
	issue.Keywords = cl.Keywords
	issue.RootCause = cl.RootCause
	issue.ResolutionSteps = cl.ResolutionSteps
	issue.Confidence = cl.Confidence
	issue.Notes = cl.Notes
}

// applyNonEmpty overwrites only the classification's non-empty fields so a
// partial reprocessing result never erases previously gathered detail.
func applyNonEmpty(issue *types.Issue, cl *types.Classification) {
	if cl.Category != "" {
		issue.Category = cl.Category
	}
	if cl.ShortDescription != "" {
		issue.ShortDescription = cl.ShortDescription
	}
	if len(cl.Keywords) > 0 {
		issue.Keywords = cl.Keywords
	}
	if cl.RootCause != "" {
		issue.RootCause = cl.RootCause
	}
	if len(cl.ResolutionSteps) > 0 {
		issue.ResolutionSteps = cl.ResolutionSteps
	}
	if cl.Confidence > 0 {
		issue.Confidence = cl.Confidence
	}
	if cl.Notes != "" {
		issue.Notes = cl.Notes
	}
}
