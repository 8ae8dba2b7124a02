package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/coopernurse/esscale/pkg/common"
	log "github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
)

type settingsBody struct {
	Index indexSettings `json:"index"`
}

type indexSettings struct {
	NumberOfReplicas int64 `json:"number_of_replicas"`
}

func NewReplicasUpdater(client *http.Client, endpointUri string) *ReplicasUpdater {
	return &ReplicasUpdater{
		client:      client,
		endpointUri: strings.TrimRight(endpointUri, "/"),
	}
}

// ReplicasUpdater changes number_of_replicas on an index or alias via the
// domain's REST endpoint.
type ReplicasUpdater struct {
	client      *http.Client
	endpointUri string
}

func (u *ReplicasUpdater) ChangeReplicas(ctx context.Context, indexAlias string, replicasCount int64) error {
	err := u.putSettings(ctx, indexAlias, replicasCount)
	if err != nil {
		return errors.Wrapf(err, "index: an error occurred while changing %s replicas", indexAlias)
	}
	log.Info("index: changed replicas", "index", indexAlias, "replicas", replicasCount)
	return nil
}

func (u *ReplicasUpdater) putSettings(ctx context.Context, indexAlias string, replicasCount int64) (err error) {
	if u.endpointUri == "" {
		return fmt.Errorf("endpoint uri is not configured")
	}
	body, err := json.Marshal(settingsBody{Index: indexSettings{NumberOfReplicas: replicasCount}})
	if err != nil {
		return err
	}

	reqUrl := fmt.Sprintf("%s/%s/_settings", u.endpointUri, url.PathEscape(indexAlias))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, reqUrl, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer common.CheckClose(resp.Body, &err)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := ioutil.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("PUT %s returned status %d: %s", reqUrl, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
