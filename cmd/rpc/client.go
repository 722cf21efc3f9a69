package rpc

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/p2pclaw/hive/controller"
	"github.com/p2pclaw/hive/fsm"
	"github.com/p2pclaw/hive/lib"
	"github.com/p2pclaw/hive/reputation"
	"github.com/p2pclaw/hive/warden"
)

type Client struct {
	rpcURL string
	client http.Client
}

func NewClient(rpcURL string) *Client {
	return &Client{rpcURL: strings.TrimSuffix(rpcURL, "/"), client: http.Client{}}
}

func (c *Client) Version() (p *versionResponse, err lib.ErrorI) {
	p = new(versionResponse)
	err = c.get(VersionRouteName, nil, "", p)
	return
}

func (c *Client) Paper(id string) (p *lib.Paper, err lib.ErrorI) {
	p = new(lib.Paper)
	err = c.get(PaperRouteName, []string{id}, "", p)
	return
}

func (c *Client) Mempool(limit int) (p []*lib.Paper, err lib.ErrorI) {
	err = c.get(MempoolRouteName, nil, limitQuery(limit), &p)
	return
}

func (c *Client) Verified(limit int) (p []*lib.Paper, err lib.ErrorI) {
	err = c.get(VerifiedRouteName, nil, limitQuery(limit), &p)
	return
}

func (c *Client) Rank(agentID string) (p *reputation.Rank, err lib.ErrorI) {
	p = new(reputation.Rank)
	err = c.get(RankRouteName, []string{agentID}, "", p)
	return
}

func (c *Client) Agent(agentID string) (p *lib.Agent, err lib.ErrorI) {
	p = new(lib.Agent)
	err = c.get(AgentRouteName, []string{agentID}, "", p)
	return
}

func (c *Client) Submit(sub fsm.Submission) (p *fsm.Receipt, err lib.ErrorI) {
	p = new(fsm.Receipt)
	err = c.post(SubmitPaperRouteName, nil, sub, p)
	return
}

func (c *Client) Validate(paperID, validatorID string, approved bool, score *float64) (p *fsm.Result, err lib.ErrorI) {
	p = new(fsm.Result)
	err = c.post(ValidatePaperRouteName, []string{paperID}, validateRequest{
		ValidatorID:  validatorID,
		Approved:     approved,
		QualityScore: score,
	}, p)
	return
}

func (c *Client) Inspect(agentID, text string) (p *warden.Verdict, err lib.ErrorI) {
	p = new(warden.Verdict)
	err = c.post(InspectRouteName, nil, textRequest{AgentID: agentID, Text: text}, p)
	return
}

func (c *Client) Appeal(agentID, reason string) (p *controller.AppealResult, err lib.ErrorI) {
	p = new(controller.AppealResult)
	err = c.post(AppealRouteName, []string{agentID}, appealRequest{Reason: reason}, p)
	return
}

func (c *Client) Review(agentID string, clearBan bool) (p *warden.Verdict, err lib.ErrorI) {
	p = new(warden.Verdict)
	err = c.post(ReviewRouteName, []string{agentID}, reviewRequest{ClearBan: clearBan}, p)
	return
}

func (c *Client) RogueScan() (p *rogueScanResponse, err lib.ErrorI) {
	p = new(rogueScanResponse)
	err = c.post(RogueScanRouteName, nil, struct{}{}, p)
	return
}

func (c *Client) Config() (p *lib.Config, err lib.ErrorI) {
	p = new(lib.Config)
	err = c.get(ConfigRouteName, nil, "", p)
	return
}

// url() fills the :params of the route path in order
func (c *Client) url(routeName string, params []string, query string) string {
	segments := strings.Split(routePaths[routeName].Path, "/")
	for i, s := range segments {
		if strings.HasPrefix(s, colon) && len(params) != 0 {
			segments[i], params = params[0], params[1:]
		}
	}
	return c.rpcURL + strings.Join(segments, "/") + query
}

func (c *Client) post(routeName string, params []string, body, ptr any) lib.ErrorI {
	bz, err := lib.MarshalJSON(body)
	if err != nil {
		return err
	}
	resp, e := c.client.Post(c.url(routeName, params, ""), ApplicationJSON, bytes.NewBuffer(bz))
	if e != nil {
		return ErrPostRequest(e)
	}
	return c.unmarshal(resp, ptr)
}

func (c *Client) get(routeName string, params []string, query string, ptr any) lib.ErrorI {
	resp, err := c.client.Get(c.url(routeName, params, query))
	if err != nil {
		return ErrGetRequest(err)
	}
	return c.unmarshal(resp, ptr)
}

func (c *Client) unmarshal(resp *http.Response, ptr any) lib.ErrorI {
	defer func() { _ = resp.Body.Close() }()
	bz, err := io.ReadAll(resp.Body)
	if err != nil {
		return ErrReadBody(err)
	}
	if resp.StatusCode != http.StatusOK {
		// prefer the structured error of the node
		e := new(lib.Error)
		if lib.UnmarshalJSON(bz, e) == nil && e.Msg != "" {
			return e
		}
		return ErrHttpStatus(resp.Status, resp.StatusCode, bz)
	}
	return lib.UnmarshalJSON(bz, ptr)
}

func limitQuery(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf("?limit=%d", limit)
}
