package meshio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MeshData is the content of a Gmsh 2.2 ASCII file.
type MeshData struct {
	FormatVersion string
	PhysicalNames []PhysicalName
	NodeTags      []int
	Nodes         [][3]float64
	Elements      []Element
	NodeData      []NodeData
}

type PhysicalName struct {
	Dim  int
	Tag  int
	Name string
}

type Element struct {
	Tag        int
	Type       int
	Physical   int
	Elementary int
	Partitions []int // First entry is the owning partition, negative entries are ghosts
	Nodes      []int // Node tags
}

// NodeData is one field at one time, Values[i] belongs to node NodeTags[i].
type NodeData struct {
	Name     string
	Time     float64
	Step     int
	NComp    int
	NodeTags []int
	Values   [][]float64
}

// gmshElementNodes22 is the node count of each Gmsh 2.2 element type
var gmshElementNodes22 = map[int]int{
	1: 2, 2: 3, 3: 4, 4: 4, 5: 8, 6: 6, 7: 5, 8: 3, 9: 6, 10: 9, 11: 10,
	15: 1, 16: 8, 17: 20, 18: 15, 19: 13,
}

var gmshElementDim22 = map[int]int{
	1: 1, 2: 2, 3: 2, 4: 3, 5: 3, 6: 3, 7: 3, 8: 1, 9: 2, 10: 2, 11: 3,
	15: 0, 16: 2, 17: 3, 18: 3, 19: 3,
}

// ReadGmsh22 reads a Gmsh MSH file format version 2.2 including $NodeData
func ReadGmsh22(r io.Reader) (md *MeshData, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	md = &MeshData{}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line {
		case "$MeshFormat":
			err = readMeshFormat22(scanner, md)
		case "$PhysicalNames":
			err = readPhysicalNames22(scanner, md)
		case "$Nodes":
			err = readNodes22(scanner, md)
		case "$Elements":
			err = readElements22(scanner, md)
		case "$NodeData":
			err = readNodeData22(scanner, md)
		default:
			if strings.HasPrefix(line, "$") && !strings.HasPrefix(line, "$End") {
				// Skip sections that carry nothing for post-processing
				err = skipTo(scanner, "$End"+line[1:])
			}
		}
		if err != nil {
			return nil, err
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	if md.FormatVersion == "" {
		return nil, fmt.Errorf("missing $MeshFormat section")
	}
	return
}

func skipTo(scanner *bufio.Scanner, endMarker string) error {
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == endMarker {
			return nil
		}
	}
	return fmt.Errorf("unexpected EOF looking for %s", endMarker)
}

func scanCount(scanner *bufio.Scanner, section string) (n int, err error) {
	if !scanner.Scan() {
		return 0, fmt.Errorf("unexpected EOF in %s", section)
	}
	if n, err = strconv.Atoi(strings.TrimSpace(scanner.Text())); err != nil {
		return 0, fmt.Errorf("invalid count in %s: %w", section, err)
	}
	return
}

func readMeshFormat22(scanner *bufio.Scanner, md *MeshData) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in MeshFormat")
	}
	parts := strings.Fields(scanner.Text())
	if len(parts) < 3 {
		return fmt.Errorf("invalid MeshFormat line")
	}
	if !strings.HasPrefix(parts[0], "2.") {
		return fmt.Errorf("unsupported mesh format version %s, expected 2.2", parts[0])
	}
	if parts[1] != "0" {
		return fmt.Errorf("binary mesh files are not supported")
	}
	md.FormatVersion = parts[0]
	return skipTo(scanner, "$EndMeshFormat")
}

func readPhysicalNames22(scanner *bufio.Scanner, md *MeshData) error {
	numNames, err := scanCount(scanner, "PhysicalNames")
	if err != nil {
		return err
	}
	for i := 0; i < numNames; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading physical names")
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) < 3 {
			return fmt.Errorf("invalid physical name line: %s", scanner.Text())
		}
		var pn PhysicalName
		pn.Dim, _ = strconv.Atoi(parts[0])
		pn.Tag, _ = strconv.Atoi(parts[1])
		pn.Name = strings.Trim(strings.Join(parts[2:], " "), "\"")
		md.PhysicalNames = append(md.PhysicalNames, pn)
	}
	return skipTo(scanner, "$EndPhysicalNames")
}

func readNodes22(scanner *bufio.Scanner, md *MeshData) error {
	numNodes, err := scanCount(scanner, "Nodes")
	if err != nil {
		return err
	}
	md.NodeTags = make([]int, 0, numNodes)
	md.Nodes = make([][3]float64, 0, numNodes)
	for i := 0; i < numNodes; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading nodes")
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) < 4 {
			return fmt.Errorf("invalid node line: %s", scanner.Text())
		}
		var (
			tag int
			X   [3]float64
		)
		if tag, err = strconv.Atoi(parts[0]); err != nil {
			return fmt.Errorf("invalid node tag: %w", err)
		}
		for r := 0; r < 3; r++ {
			if X[r], err = strconv.ParseFloat(parts[1+r], 64); err != nil {
				return fmt.Errorf("node %d: %w", tag, err)
			}
		}
		md.NodeTags = append(md.NodeTags, tag)
		md.Nodes = append(md.Nodes, X)
	}
	return skipTo(scanner, "$EndNodes")
}

func readElements22(scanner *bufio.Scanner, md *MeshData) error {
	numElements, err := scanCount(scanner, "Elements")
	if err != nil {
		return err
	}
	for i := 0; i < numElements; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading elements")
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) < 4 {
			return fmt.Errorf("invalid element line: %s", scanner.Text())
		}
		var (
			el      Element
			numTags int
		)
		el.Tag, _ = strconv.Atoi(parts[0])
		el.Type, _ = strconv.Atoi(parts[1])
		numTags, _ = strconv.Atoi(parts[2])
		if len(parts) < 3+numTags {
			return fmt.Errorf("element %d: invalid element tags", el.Tag)
		}
		tags := make([]int, numTags)
		for j := range tags {
			tags[j], _ = strconv.Atoi(parts[3+j])
		}
		if numTags > 0 {
			el.Physical = tags[0]
		}
		if numTags > 1 {
			el.Elementary = tags[1]
		}
		if numTags > 3 {
			numPartitions := tags[2]
			if 3+numPartitions > numTags {
				return fmt.Errorf("element %d: %d partitions in %d tags", el.Tag, numPartitions, numTags)
			}
			el.Partitions = tags[3 : 3+numPartitions]
		}
		expectedNodes, ok := gmshElementNodes22[el.Type]
		if !ok {
			return fmt.Errorf("element %d: unsupported element type %d", el.Tag, el.Type)
		}
		nodeStart := 3 + numTags
		if len(parts) < nodeStart+expectedNodes {
			return fmt.Errorf("element %d: expected %d nodes, got %d",
				el.Tag, expectedNodes, len(parts)-nodeStart)
		}
		el.Nodes = make([]int, expectedNodes)
		for j := range el.Nodes {
			el.Nodes[j], _ = strconv.Atoi(parts[nodeStart+j])
		}
		md.Elements = append(md.Elements, el)
	}
	return skipTo(scanner, "$EndElements")
}

func readNodeData22(scanner *bufio.Scanner, md *MeshData) (err error) {
	var (
		nd                         NodeData
		numString, numReal, numInt int
	)
	if numString, err = scanCount(scanner, "NodeData string tags"); err != nil {
		return
	}
	for i := 0; i < numString; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF in NodeData string tags")
		}
		if i == 0 {
			nd.Name = strings.Trim(strings.TrimSpace(scanner.Text()), "\"")
		}
	}
	if numReal, err = scanCount(scanner, "NodeData real tags"); err != nil {
		return
	}
	for i := 0; i < numReal; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF in NodeData real tags")
		}
		if i == 0 {
			if nd.Time, err = strconv.ParseFloat(strings.TrimSpace(scanner.Text()), 64); err != nil {
				return fmt.Errorf("NodeData %s time: %w", nd.Name, err)
			}
		}
	}
	if numInt, err = scanCount(scanner, "NodeData integer tags"); err != nil {
		return
	}
	if numInt < 3 {
		return fmt.Errorf("NodeData %s: expected 3 integer tags, got %d", nd.Name, numInt)
	}
	intTags := make([]int, numInt)
	for i := range intTags {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF in NodeData integer tags")
		}
		if intTags[i], err = strconv.Atoi(strings.TrimSpace(scanner.Text())); err != nil {
			return fmt.Errorf("NodeData %s integer tag: %w", nd.Name, err)
		}
	}
	nd.Step, nd.NComp = intTags[0], intTags[1]
	numValues := intTags[2]
	nd.NodeTags = make([]int, numValues)
	nd.Values = make([][]float64, numValues)
	for i := 0; i < numValues; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading NodeData %s", nd.Name)
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) < 1+nd.NComp {
			return fmt.Errorf("NodeData %s: expected %d components, got %d", nd.Name, nd.NComp, len(parts)-1)
		}
		nd.NodeTags[i], _ = strconv.Atoi(parts[0])
		nd.Values[i] = make([]float64, nd.NComp)
		for c := range nd.Values[i] {
			if nd.Values[i][c], err = strconv.ParseFloat(parts[1+c], 64); err != nil {
				return fmt.Errorf("NodeData %s node %d: %w", nd.Name, nd.NodeTags[i], err)
			}
		}
	}
	md.NodeData = append(md.NodeData, nd)
	return skipTo(scanner, "$EndNodeData")
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// WriteGmsh22 writes md as a Gmsh 2.2 ASCII file.
func WriteGmsh22(w io.Writer, md *MeshData) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n")
	if len(md.PhysicalNames) > 0 {
		fmt.Fprintf(bw, "$PhysicalNames\n%d\n", len(md.PhysicalNames))
		for _, pn := range md.PhysicalNames {
			fmt.Fprintf(bw, "%d %d \"%s\"\n", pn.Dim, pn.Tag, pn.Name)
		}
		fmt.Fprintf(bw, "$EndPhysicalNames\n")
	}
	fmt.Fprintf(bw, "$Nodes\n%d\n", len(md.Nodes))
	for i, X := range md.Nodes {
		fmt.Fprintf(bw, "%d %s %s %s\n", md.NodeTags[i], formatFloat(X[0]), formatFloat(X[1]), formatFloat(X[2]))
	}
	fmt.Fprintf(bw, "$EndNodes\n$Elements\n%d\n", len(md.Elements))
	for _, el := range md.Elements {
		tags := []int{el.Physical, el.Elementary}
		if len(el.Partitions) > 0 {
			tags = append(tags, len(el.Partitions))
			tags = append(tags, el.Partitions...)
		}
		fmt.Fprintf(bw, "%d %d %d", el.Tag, el.Type, len(tags))
		for _, tag := range tags {
			fmt.Fprintf(bw, " %d", tag)
		}
		for _, n := range el.Nodes {
			fmt.Fprintf(bw, " %d", n)
		}
		fmt.Fprintf(bw, "\n")
	}
	fmt.Fprintf(bw, "$EndElements\n")
	for _, nd := range md.NodeData {
		fmt.Fprintf(bw, "$NodeData\n1\n\"%s\"\n1\n%s\n3\n%d\n%d\n%d\n",
			nd.Name, formatFloat(nd.Time), nd.Step, nd.NComp, len(nd.NodeTags))
		for i, tag := range nd.NodeTags {
			fmt.Fprintf(bw, "%d", tag)
			for _, v := range nd.Values[i] {
				fmt.Fprintf(bw, " %s", formatFloat(v))
			}
			fmt.Fprintf(bw, "\n")
		}
		fmt.Fprintf(bw, "$EndNodeData\n")
	}
	return bw.Flush()
}
