package core

import (
	"encoding/json"
	"testing"
)

func TestBlockJSONRoundTripKeepsUnknownFields(t *testing.T) {
	raw := `{"id":"b1","type":"paragraph","data":{"text":"Hello","align":"center"}}`

	var block Block
	if err := json.Unmarshal([]byte(raw), &block); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if block.Type != BlockParagraph {
		t.Errorf("Expected type paragraph, got %s", block.Type)
	}

	out, err := json.Marshal(block)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var back Block
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if back.Data["align"] != "center" {
		t.Errorf("Expected unknown field to survive, got %v", back.Data["align"])
	}
}

func TestCloneBlocksIsDeep(t *testing.T) {
	original := []Block{
		{ID: "b1", Type: BlockList, Data: map[string]interface{}{
			"items": []interface{}{"first", "second"},
		}},
		{ID: "b2", Type: BlockAccordion, Data: map[string]interface{}{
			"items": []interface{}{map[string]interface{}{"question": "Q", "answer": "A"}},
		}},
	}

	clone := CloneBlocks(original)
	clone[0].Data["items"].([]interface{})[0] = "changed"
	clone[1].Data["items"].([]interface{})[0].(map[string]interface{})["answer"] = "changed"

	if original[0].Data["items"].([]interface{})[0] != "first" {
		t.Error("Mutating the clone changed the original list item")
	}
	if original[1].Data["items"].([]interface{})[0].(map[string]interface{})["answer"] != "A" {
		t.Error("Mutating the clone changed the original accordion answer")
	}
}

func TestCloneBlocksNil(t *testing.T) {
	if CloneBlocks(nil) != nil {
		t.Error("Expected nil clone for nil input")
	}
}
