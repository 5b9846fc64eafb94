// Command fabricctl is a small HTTP client for a geofabric storage node:
// it posts blocks, queries, and filesystem admin requests to a node's /v1
// surface and prints the JSON reply.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"geofabric/pkg/types"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "storage node base URL")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "put":
		err = runPut(*addr, args[1:])
	case "query":
		err = runQuery(*addr, args[1:])
	case "create-filesystem":
		err = runFilesystem(*addr, types.FilesystemCreate, args[1:])
	case "delete-filesystem":
		err = runFilesystem(*addr, types.FilesystemDelete, args[1:])
	case "list-filesystems":
		err = runList(*addr)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "fabricctl:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: fabricctl [-addr URL] <command> [args]

commands:
  put -filesystem NAME -lat F -lon F
  query -filesystem NAME -region POLYGON_JSON [-interactive] [-dry-run] [-allow-wildcards]
  create-filesystem -name NAME -precision N -temporal HOUR|DAY|MONTH|YEAR
  delete-filesystem -name NAME
  list-filesystems`)
}

func postJSON(addr, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	resp, err := http.Post(strings.TrimRight(addr, "/")+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, string(data))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func runPut(addr string, args []string) error {
	fs := flag.NewFlagSet("put", flag.ExitOnError)
	filesystem := fs.String("filesystem", "", "filesystem name")
	lat := fs.Float64("lat", 0, "latitude")
	lon := fs.Float64("lon", 0, "longitude")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req := types.StorageRequest{
		Filesystem: *filesystem,
		Metadata: types.Metadata{
			HasSpatial: true,
			Spatial:    types.Polygon{{Lat: *lat, Lon: *lon}},
		},
	}
	return postJSON(addr, "/v1/blocks", req, nil)
}

func runQuery(addr string, args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	filesystem := fs.String("filesystem", "", "filesystem name")
	regionJSON := fs.String("region", "", "polygon as JSON, e.g. [{\"lat\":0,\"lon\":0},...]")
	interactive := fs.Bool("interactive", true, "return rows inline instead of spooling")
	dryRun := fs.Bool("dry-run", false, "return matching block ids only")
	allowWildcards := fs.Bool("allow-wildcards", false, "allow a query with no temporal bound")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var region types.Polygon
	if *regionJSON != "" {
		if err := json.Unmarshal([]byte(*regionJSON), &region); err != nil {
			return fmt.Errorf("parse region: %w", err)
		}
	}

	req := types.QueryRequest{
		Filesystem:              *filesystem,
		Region:                  region,
		Interactive:             *interactive,
		DryRun:                  *dryRun,
		AllowWallClockWildcards: *allowWildcards,
	}
	var result types.QueryResult
	if err := postJSON(addr, "/v1/queries", req, &result); err != nil {
		return err
	}
	return printJSON(result)
}

func runFilesystem(addr string, op types.FilesystemOp, args []string) error {
	fs := flag.NewFlagSet(string(op), flag.ExitOnError)
	name := fs.String("name", "", "filesystem name")
	precision := fs.Int("precision", 5, "geohash precision")
	temporal := fs.String("temporal", "DAY", "HOUR|DAY|MONTH|YEAR")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := types.FilesystemRequest{
		Op: op,
		Descriptor: types.FilesystemDescriptor{
			Name:             *name,
			SpatialPrecision: *precision,
			TemporalType:     parseTemporal(*temporal),
		},
	}
	return postJSON(addr, "/v1/admin/filesystems", req, nil)
}

func parseTemporal(s string) types.TemporalType {
	switch strings.ToUpper(s) {
	case "HOUR":
		return types.Hour
	case "MONTH":
		return types.Month
	case "YEAR":
		return types.Year
	default:
		return types.Day
	}
}

func runList(addr string) error {
	resp, err := http.Get(strings.TrimRight(addr, "/") + "/v1/admin/filesystems")
	if err != nil {
		return fmt.Errorf("get filesystems: %w", err)
	}
	defer resp.Body.Close()

	var descriptors []types.FilesystemDescriptor
	if err := json.NewDecoder(resp.Body).Decode(&descriptors); err != nil {
		return fmt.Errorf("decode filesystems: %w", err)
	}
	return printJSON(descriptors)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
